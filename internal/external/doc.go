// Package external runs a simulation in a separate process and exposes it as
// an engine.Engine.
//
// The child speaks line-delimited JSON on stdin and stdout. Every request is
// one object with an "op" field and gets exactly one reply line:
//
//	{"op":"init","seed":42}         -> {"action_space":{...},"observation_space":{...},"render_mode":"text"}
//	{"op":"reset"}                  -> {"observation":[...]}
//	{"op":"step","action":[1]}      -> {"observation":[...],"reward":1,"done":false,"info":{}}
//	{"op":"render","mode":"pixel"}  -> {"png":"<base64>"} or {"text":"..."}
//
// Spaces are {"kind":"discrete","n":4} or {"kind":"box","low":[...],"high":[...]}.
// A failed request is answered with {"error":{"code":"...","message":"..."}}
// where code is one of needs_reset, invalid_action or render_unsupported, or
// any other string for a generic simulator failure. Closing stdin asks the
// child to exit. Anything the child writes to stderr is kept in a log file.
package external
