package lua

import (
	"log/slog"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/logging"
)

// Host exposes an object registry and a history recorder to scripts as the
// globals "objects" and "history".
//
//	local node = objects.new({ x = 0 })
//	history.create_action("move")
//	history.add_do_property(node, "x", 10)
//	history.add_undo_property(node, "x", 0)
//	history.commit_action()
//	history.undo()
type Host struct {
	state    *State
	bridge   *Bridge
	objects  *object.Registry
	recorder *history.Recorder
	logger   *slog.Logger

	defaultMode atomic.Int32
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithDefaultMergeMode sets the mode used by create_action when none is given.
func WithDefaultMergeMode(m history.MergeMode) HostOption {
	return func(h *Host) {
		h.defaultMode.Store(int32(m))
	}
}

// WithHostLogger sets the host's logger.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHost creates a host over state. Call Install before running scripts.
func NewHost(state *State, objects *object.Registry, recorder *history.Recorder, opts ...HostOption) *Host {
	h := &Host{
		state:    state,
		bridge:   NewBridge(state.LuaState()),
		objects:  objects,
		recorder: recorder,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Bridge returns the host's value bridge.
func (h *Host) Bridge() *Bridge {
	return h.bridge
}

// Handler returns a dispatcher handler for the script's tables.
func (h *Host) Handler() *TableHandler {
	return NewTableHandler(h.bridge)
}

// SetDefaultMergeMode changes the mode used by create_action when none is given.
// It is safe to call while a script runs.
func (h *Host) SetDefaultMergeMode(m history.MergeMode) {
	h.defaultMode.Store(int32(m))
}

// DefaultMergeMode returns the mode used by create_action when none is given.
func (h *Host) DefaultMergeMode() history.MergeMode {
	return history.MergeMode(h.defaultMode.Load())
}

// Install registers the script globals.
func (h *Host) Install() {
	h.state.RegisterModule("objects", map[string]lua.LGFunction{
		"new":     h.objectsNew,
		"get":     h.objectsGet,
		"alive":   h.objectsAlive,
		"destroy": h.objectsDestroy,
		"release": h.objectsRelease,
	})

	mod := h.state.RegisterModule("history", map[string]lua.LGFunction{
		"create_action":       h.createAction,
		"add_do_method":       h.addMethod(false),
		"add_undo_method":     h.addMethod(true),
		"add_do_property":     h.addProperty(false),
		"add_undo_property":   h.addProperty(true),
		"add_do_reference":    h.addReference(false),
		"add_undo_reference":  h.addReference(true),
		"commit_action":       h.commitAction,
		"abort_action":        h.abortAction,
		"undo":                h.undo,
		"redo":                h.redo,
		"has_undo":            h.hasUndo,
		"has_redo":            h.hasRedo,
		"clear_history":       h.clearHistory,
		"version":             h.version,
		"action_count":        h.actionCount,
		"current_action":      h.currentAction,
		"current_action_name": h.currentActionName,
		"is_committing":       h.isCommitting,
	})
	if mod != nil {
		mod.RawSetString("MERGE_DISABLE", lua.LString(history.MergeDisable.String()))
		mod.RawSetString("MERGE_ENDS", lua.LString(history.MergeEnds.String()))
		mod.RawSetString("MERGE_ALL", lua.LString(history.MergeAll.String()))
	}
}

// raise turns a Go error into a Lua error.
func raise(L *lua.LState, err error) {
	L.RaiseError("%s", err.Error())
}

func (h *Host) objectsNew(L *lua.LState) int {
	tbl := L.CheckTable(1)
	shared := L.OptBool(2, false)
	var handle object.Handle
	if shared {
		handle = h.objects.RegisterShared(tbl)
	} else {
		handle = h.objects.Register(tbl)
	}
	h.logger.Debug("object registered", "handle", handle, "shared", shared)
	L.Push(h.bridge.NewHandle(handle))
	return 1
}

func (h *Host) objectsGet(L *lua.LState) int {
	obj, ok := h.objects.Resolve(h.bridge.CheckHandle(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if lv, isLua := obj.(lua.LValue); isLua {
		L.Push(lv)
		return 1
	}
	ud := L.NewUserData()
	ud.Value = obj
	L.Push(ud)
	return 1
}

func (h *Host) objectsAlive(L *lua.LState) int {
	L.Push(lua.LBool(h.objects.Alive(h.bridge.CheckHandle(1))))
	return 1
}

func (h *Host) objectsDestroy(L *lua.LState) int {
	L.Push(lua.LBool(h.objects.Destroy(h.bridge.CheckHandle(1))))
	return 1
}

func (h *Host) objectsRelease(L *lua.LState) int {
	h.objects.Release(h.bridge.CheckHandle(1))
	return 0
}

func (h *Host) createAction(L *lua.LState) int {
	name := L.OptString(1, "")
	mode := h.DefaultMergeMode()
	if L.GetTop() >= 2 {
		m, err := history.ParseMergeMode(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		mode = m
	}
	h.recorder.CreateAction(name, mode)
	return 0
}

func (h *Host) addMethod(undo bool) lua.LGFunction {
	return func(L *lua.LState) int {
		target := h.bridge.CheckHandle(1)
		method := L.CheckString(2)
		args := h.bridge.Args(3)

		var err error
		if undo {
			err = h.recorder.AddUndoMethod(target, method, args...)
		} else {
			err = h.recorder.AddDoMethod(target, method, args...)
		}
		if err != nil {
			raise(L, err)
		}
		return 0
	}
}

func (h *Host) addProperty(undo bool) lua.LGFunction {
	return func(L *lua.LState) int {
		target := h.bridge.CheckHandle(1)
		property := L.CheckString(2)
		value := h.bridge.ToValue(L.Get(3))

		var err error
		if undo {
			err = h.recorder.AddUndoProperty(target, property, value)
		} else {
			err = h.recorder.AddDoProperty(target, property, value)
		}
		if err != nil {
			raise(L, err)
		}
		return 0
	}
}

func (h *Host) addReference(undo bool) lua.LGFunction {
	return func(L *lua.LState) int {
		target := h.bridge.CheckHandle(1)

		var err error
		if undo {
			err = h.recorder.AddUndoReference(target)
		} else {
			err = h.recorder.AddDoReference(target)
		}
		if err != nil {
			raise(L, err)
		}
		return 0
	}
}

func (h *Host) commitAction(L *lua.LState) int {
	if err := h.recorder.CommitAction(); err != nil {
		raise(L, err)
	}
	return 0
}

func (h *Host) abortAction(L *lua.LState) int {
	if err := h.recorder.AbortAction(); err != nil {
		raise(L, err)
	}
	return 0
}

func (h *Host) undo(L *lua.LState) int {
	L.Push(lua.LBool(h.recorder.Undo()))
	return 1
}

func (h *Host) redo(L *lua.LState) int {
	L.Push(lua.LBool(h.recorder.Redo()))
	return 1
}

func (h *Host) hasUndo(L *lua.LState) int {
	L.Push(lua.LBool(h.recorder.HasUndo()))
	return 1
}

func (h *Host) hasRedo(L *lua.LState) int {
	L.Push(lua.LBool(h.recorder.HasRedo()))
	return 1
}

func (h *Host) clearHistory(L *lua.LState) int {
	if err := h.recorder.ClearHistory(L.OptBool(1, true)); err != nil {
		raise(L, err)
	}
	return 0
}

func (h *Host) version(L *lua.LState) int {
	L.Push(lua.LNumber(h.recorder.Version()))
	return 1
}

func (h *Host) actionCount(L *lua.LState) int {
	L.Push(lua.LNumber(h.recorder.ActionCount()))
	return 1
}

func (h *Host) currentAction(L *lua.LState) int {
	L.Push(lua.LNumber(h.recorder.CurrentAction()))
	return 1
}

func (h *Host) currentActionName(L *lua.LState) int {
	L.Push(lua.LString(h.recorder.CurrentActionName()))
	return 1
}

func (h *Host) isCommitting(L *lua.LState) int {
	L.Push(lua.LBool(h.recorder.IsCommittingAction()))
	return 1
}
