// Package simenv hosts simulation environment instances behind string ids.
//
// A Registry creates engine instances by kind, drives them through reset and
// step calls, optionally renders frames to disk and records episodes with a
// monitor. Every operation on one instance is serialized in arrival order;
// operations on different instances run in parallel.
//
// # Basic Usage
//
//	reg := simenv.NewRegistry(simenv.WithDataDir("/var/lib/simenv"))
//	defer reg.Shutdown()
//
//	id, err := reg.Create(ctx, "GridWorld")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := reg.Reset(ctx, id, false); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := reg.Step(ctx, id, 2, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Observation, res.Reward, res.Done, res.Render.Frame)
//
// # Errors
//
// Every error returned by a Registry maps to one member of a closed taxonomy
// through KindOf. Client kinds (InstanceNotFound, InvalidAction,
// EngineResetRequired and the like) are caused by the request; the rest are
// server side.
//
//	_, err := reg.Step(ctx, id, 7, false)
//	switch {
//	case errors.Is(err, simenv.ErrInvalidAction):
//	    // decode failed against the action space
//	case errors.Is(err, simenv.ErrEngineResetRequired):
//	    // episode ended; call Reset
//	}
//
// # Rendering and Recording
//
// Frames are written to <data>/<id>/rendered/<counter>.png (pixel engines) or
// <counter>.txt (text engines). The counter grows only when a frame is
// durably written, so frames are never overwritten. A render or recording
// failure is reported next to the step result and never fails the step.
//
// MonitorStart opens an episode recorder under <data>/<id>/recording/. Prior
// recordings must be discarded (Force) or appended to (Resume) explicitly.
//
// # Configuration
//
// Options are applied once by NewRegistry. Each With* function panics on an
// invalid value; see defaults.go for the values used otherwise.
package simenv
