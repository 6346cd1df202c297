package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it
// into the Lua state as the global "platform". Call it before running
// any user configuration code.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(info.Platform.String()))
	L.SetField(platformTable, "arch", lua.LString(string(info.Arch)))
	L.SetField(platformTable, "goos", lua.LString(info.GOOS))
	L.SetField(platformTable, "goarch", lua.LString(info.GOARCH))

	L.SetField(platformTable, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(platformTable, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(platformTable, "is_windows", lua.LBool(info.IsWindows()))

	L.SetField(platformTable, "is_x64", lua.LBool(info.Arch == ArchX64))
	L.SetField(platformTable, "is_arm64", lua.LBool(info.Arch == ArchARM64))
	L.SetField(platformTable, "is_ia32", lua.LBool(info.Arch == ArchIA32))

	if info.HasDistro() {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(info.Distro))
		L.SetField(distroTable, "family", lua.LString(info.Family))
		L.SetField(distroTable, "version", lua.LString(info.Version))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	// when(condition, value) returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly wraps table in an empty proxy whose metatable redirects
// reads and rejects writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
