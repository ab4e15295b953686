package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// openSafeLibraries opens only the base, table, string and math libraries.
// io, os, debug, package and channel stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installSandbox removes the loaders and replaces print and emit.
func installSandbox(s *State) {
	L := s.L

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		s.logger.Info(strings.Join(parts, "\t"), "script", s.name)
		return 0
	}))

	L.SetGlobal("emit", L.NewFunction(func(L *lua.LState) int {
		if s.target == nil {
			L.RaiseError("emit is not available in this script")
			return 0
		}
		name := L.CheckString(1)
		args := make([]any, 0, L.GetTop()-1)
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, toGo(L.Get(i)))
		}
		s.queued = append(s.queued, queuedEmit{name: name, args: args})
		return 0
	}))
}
