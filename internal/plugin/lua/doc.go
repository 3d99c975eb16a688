// Package lua provides the Lua scripting host for driving action history.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management with execution deadlines
//   - Lua <-> variant value conversion and handle userdata
//   - A dispatcher handler that performs operations on Lua tables
//   - The "objects" and "history" script globals
//
// # State
//
//	state := lua.NewState(lua.WithExecutionTimeout(5 * time.Second))
//	defer state.Close()
//
// # Host
//
// A Host binds an object registry and a recorder into the state. Lua tables
// registered through objects.new become history targets; the TableHandler
// lets the recorder call their methods and assign their fields:
//
//	router := dispatcher.NewRouter()
//	rec := history.NewRecorder(registry, router)
//	host := lua.NewHost(state, registry, rec)
//	router.Register(host.Handler())
//	host.Install()
//
//	err := state.DoFile(ctx, "edit.lua")
//
// Script-facing API:
//
//	objects.new(tbl [, shared])   -> handle
//	objects.get(h)                -> tbl or nil
//	objects.alive(h), objects.destroy(h), objects.release(h)
//
//	history.create_action(name [, mode])  -- mode: "disable", "ends", "all"
//	history.add_do_method(h, name, ...)   history.add_undo_method(h, name, ...)
//	history.add_do_property(h, name, v)   history.add_undo_property(h, name, v)
//	history.add_do_reference(h)           history.add_undo_reference(h)
//	history.commit_action()  history.abort_action()
//	history.undo()  history.redo()  history.has_undo()  history.has_redo()
//	history.clear_history([bump])  history.version()  history.action_count()
//	history.current_action()  history.current_action_name()  history.is_committing()
//
// Recorder misuse (for example committing with no open action) raises a Lua error.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. Functions that
// load code are removed, and print goes to the state's logger.
package lua
