// Command lockstepsim runs a scripted multiplayer lockstep session from a
// TOML scenario file, driving each participant's virtual timing wheel
// until every instance is idle, and reports the resulting register state.
// It exists to exercise the lockstep and session packages end to end
// without a real emulation core behind each instance.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"

	"github.com/openemu/lockstep"
	"github.com/openemu/lockstep/lockstephist"
	"github.com/openemu/lockstep/session"
)

// scenario is the TOML schema for a simulated session: a protocol choice,
// a baud rate, and one entry per participant (the first entry is always
// the master).
type scenario struct {
	Protocol string          `toml:"protocol"` // "multiplayer" or "legacy"
	Baud     uint8           `toml:"baud"`
	Players  []playerConfig  `toml:"player"`
	MaxEvents int            `toml:"max_events"`
}

type playerConfig struct {
	Mode string `toml:"mode"` // "multi", "normal8", or "normal32"
	Send uint32 `toml:"send"` // initial outgoing data word
}

func main() {
	path := flag.String("scenario", "", "path to a TOML scenario file")
	dump := flag.String("dump", "", "path to write a snapshot-history dump on panic")
	flag.Parse()

	logger := log.New("module", "lockstepsim")
	if *path == "" {
		logger.Crit("missing -scenario")
	}

	var sc scenario
	if _, err := toml.DecodeFile(*path, &sc); err != nil {
		logger.Crit("failed to load scenario", "err", err)
	}
	if sc.MaxEvents == 0 {
		sc.MaxEvents = 10000
	}

	protocol := protocolFor(sc.Protocol)
	sess := session.New(protocol, logger)
	defer sess.Close()

	rec := lockstephist.NewRecorder()
	rec.SetCapture(*dump != "")
	stopWatch := rec.Watch(sess)
	defer stopWatch()
	if *dump != "" {
		defer rec.DumpOnPanic(*dump)
	}

	guests := make([]*simGuest, 0, len(sc.Players))
	var instances []*session.Instance
	var modes []lockstep.Mode
	for i, pc := range sc.Players {
		mode, err := modeFor(pc.Mode)
		if err != nil {
			logger.Crit("invalid player config", "index", i, "err", err)
		}
		guest := newSimGuest(sc.Baud, pc.Send)
		guests = append(guests, guest)
		modes = append(modes, mode)
		inst, err := sess.Attach(guest, mode)
		if err != nil {
			logger.Crit("failed to attach player", "index", i, "err", err)
		}
		instances = append(instances, inst)
	}

	// The master kicks the session off by raising its own START bit through
	// its driver node's write-register hooks, the only path that ever moves
	// the coordinator out of PhaseIdle; everyone else is already waiting
	// for it after Load.
	if len(instances) > 0 {
		startMaster(instances[0], modes[0], guests[0])
	}

	fired := sess.Run(sc.MaxEvents)
	logger.Info("simulation finished", "events", fired, "phase", sess.Shared().Phase())

	for i, g := range guests {
		fmt.Printf("player %d: sioData32=%#08x\n", i, g.SIOData32())
	}
	os.Exit(0)
}

// startMaster raises the master instance's own START bit the way a real
// guest write would: through its driver node's MultiWriteRegister or
// NormalWriteRegister hook, the only place phase ever leaves PhaseIdle.
func startMaster(inst *session.Instance, mode lockstep.Mode, guest *simGuest) {
	guest.Start()

	switch mode {
	case lockstep.ModeMulti:
		guest.sioCnt = inst.Node.MultiWriteRegister(lockstep.RegSIOCNT, guest.sioCnt|lockstep.ControlStartBit)
	default:
		guest.sioCnt = inst.Node.NormalWriteRegister(lockstep.RegSIOCNT, guest.sioCnt|lockstep.ControlStartBit|lockstep.ControlInternalClockBit)
	}
}

func protocolFor(name string) lockstep.Protocol {
	switch name {
	case "", "multiplayer":
		return lockstep.MultiplayerProtocol{}
	case "legacy":
		return lockstep.LegacyProtocol{}
	default:
		return lockstep.MultiplayerProtocol{}
	}
}

func modeFor(name string) (lockstep.Mode, error) {
	switch name {
	case "multi":
		return lockstep.ModeMulti, nil
	case "normal8":
		return lockstep.ModeNormal8, nil
	case "normal32":
		return lockstep.ModeNormal32, nil
	default:
		return lockstep.ModeOther, fmt.Errorf("unknown mode %q", name)
	}
}
