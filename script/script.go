// Package script runs Lua bring-up scripts against a transmitter.
//
// Scripts see these globals:
//
//	reg_read(addr)                  -> value | nil, err
//	reg_write(addr, value)          -> true | false, err
//	field_write(addr, start, width, value)
//	dpcd_read(addr, len)            -> {bytes} | nil, err
//	dpcd_write(addr, {bytes})       -> true | false, err
//	phy_read(addr), phy_write(addr, value)
//	hpd()                           -> bool | nil, err
//	event()                         -> SW_EVENTS0
//	edid()                          -> {bytes} | nil, err
//	train()                         -> {rate=, lanes=} | nil, err
//	adjust(lanes, delay_us, {bytes}) -> {6 lane status bytes} | nil, err
//	command(module, opcode, {bytes}, size) -> {bytes} | nil, err
//	log(...)
//
// Failures come back as a nil or false value followed by the error string,
// so scripts can decide whether to carry on.
package script

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/c35s/mhdp/dp"
	lua "github.com/yuin/gopher-lua"
)

// Target is the part of a device a script can drive.
type Target interface {
	ReadReg(addr uint32) (uint32, error)
	WriteReg(addr, val uint32) error
	WriteField(addr uint16, start, width uint8, val uint32) error
	ReadDPCD(addr uint32, buf []byte) error
	WriteDPCD(addr uint32, val byte) error
	PHYRead(addr uint32) (uint32, error)
	PHYWrite(addr, val uint32) error
	HPD() (bool, error)
	Event() uint32
	ReadEDID() ([]byte, error)
	TrainLink() error
	Link() dp.Link
	AdjustTraining(lanes int, delayUS uint16, laneData []byte) ([dp.DPCDLaneStatusLen]byte, error)
	Command(module, opcode uint8, req []byte, size uint16) ([]byte, error)
}

// Options customizes the Lua environment.
type Options struct {

	// Globals are set before the script runs.
	Globals map[string]any

	// Logger receives log() output. If Logger is nil, slog.Default() is used.
	Logger *slog.Logger
}

// RunFile runs the script at path and returns what it returns.
func RunFile(path string, t Target, opts Options) ([]lua.LValue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&fs.ModeType != 0 {
		return nil, fmt.Errorf("script: %s is not a regular file", path)
	}

	return run(t, opts, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// RunString runs src as a script.
func RunString(src string, t Target, opts Options) ([]lua.LValue, error) {
	return run(t, opts, func(L *lua.LState) error {
		return L.DoString(src)
	})
}

func run(t Target, opts Options, do func(*lua.LState) error) ([]lua.LValue, error) {
	L := lua.NewState()
	defer L.Close()

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	for name, fn := range functions(t, opts.Logger) {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	for name, v := range opts.Globals {
		L.SetGlobal(name, toLValue(L, v))
	}

	if err := do(L); err != nil {
		return nil, err
	}

	top := L.GetTop()
	results := make([]lua.LValue, top)
	for i := 1; i <= top; i++ {
		results[i-1] = L.Get(i)
	}

	return results, nil
}

func fail(L *lua.LState, falsy lua.LValue, err error) int {
	L.Push(falsy)
	L.Push(lua.LString(err.Error()))
	return 2
}

func functions(t Target, log *slog.Logger) map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"reg_read": func(L *lua.LState) int {
			v, err := t.ReadReg(uint32(L.CheckInt64(1)))
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(lua.LNumber(v))
			return 1
		},

		"reg_write": func(L *lua.LState) int {
			if err := t.WriteReg(uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2))); err != nil {
				return fail(L, lua.LFalse, err)
			}

			L.Push(lua.LTrue)
			return 1
		},

		"field_write": func(L *lua.LState) int {
			err := t.WriteField(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)), uint8(L.CheckInt(3)), uint32(L.CheckInt64(4)))
			if err != nil {
				return fail(L, lua.LFalse, err)
			}

			L.Push(lua.LTrue)
			return 1
		},

		"dpcd_read": func(L *lua.LState) int {
			addr := uint32(L.CheckInt64(1))
			n := L.CheckInt(2)
			if n <= 0 {
				L.ArgError(2, "length must be greater than zero")
				return 0
			}

			buf := make([]byte, n)
			if err := t.ReadDPCD(addr, buf); err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(bytesTable(L, buf))
			return 1
		},

		"dpcd_write": func(L *lua.LState) int {
			addr := uint32(L.CheckInt64(1))

			data, err := tableBytes(L.CheckTable(2))
			if err != nil {
				return fail(L, lua.LFalse, err)
			}

			for i, b := range data {
				if err := t.WriteDPCD(addr+uint32(i), b); err != nil {
					return fail(L, lua.LFalse, err)
				}
			}

			L.Push(lua.LTrue)
			return 1
		},

		"phy_read": func(L *lua.LState) int {
			v, err := t.PHYRead(uint32(L.CheckInt64(1)))
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(lua.LNumber(v))
			return 1
		},

		"phy_write": func(L *lua.LState) int {
			if err := t.PHYWrite(uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2))); err != nil {
				return fail(L, lua.LFalse, err)
			}

			L.Push(lua.LTrue)
			return 1
		},

		"hpd": func(L *lua.LState) int {
			ok, err := t.HPD()
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(lua.LBool(ok))
			return 1
		},

		"event": func(L *lua.LState) int {
			L.Push(lua.LNumber(t.Event()))
			return 1
		},

		"edid": func(L *lua.LState) int {
			b, err := t.ReadEDID()
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(bytesTable(L, b))
			return 1
		},

		"train": func(L *lua.LState) int {
			if err := t.TrainLink(); err != nil {
				return fail(L, lua.LNil, err)
			}

			link := t.Link()

			tbl := L.NewTable()
			tbl.RawSetString("rate", lua.LNumber(link.Rate))
			tbl.RawSetString("lanes", lua.LNumber(link.Lanes))
			L.Push(tbl)
			return 1
		},

		"adjust": func(L *lua.LState) int {
			lanes := L.CheckInt(1)
			delay := L.CheckInt(2)
			if delay < 0 || delay > 0xffff {
				L.ArgError(2, "delay must fit in 16 bits")
				return 0
			}

			data, err := tableBytes(L.CheckTable(3))
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			st, err := t.AdjustTraining(lanes, uint16(delay), data)
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(bytesTable(L, st[:]))
			return 1
		},

		"command": func(L *lua.LState) int {
			module := L.CheckInt(1)
			opcode := L.CheckInt(2)

			req, err := tableBytes(L.CheckTable(3))
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			size := L.CheckInt(4)
			if size < 0 || size > 0xffff {
				L.ArgError(4, "size must fit in 16 bits")
				return 0
			}

			resp, err := t.Command(uint8(module), uint8(opcode), req, uint16(size))
			if err != nil {
				return fail(L, lua.LNil, err)
			}

			L.Push(bytesTable(L, resp))
			return 1
		},

		"log": func(L *lua.LState) int {
			parts := make([]string, L.GetTop())
			for i := range parts {
				parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
			}

			log.Info(strings.Join(parts, " "), "source", "script")
			return 0
		},
	}
}

func bytesTable(L *lua.LState, b []byte) *lua.LTable {
	tbl := L.CreateTable(len(b), 0)
	for i, v := range b {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}

	return tbl
}

func tableBytes(tbl *lua.LTable) ([]byte, error) {
	b := make([]byte, tbl.Len())
	for i := range b {
		n, ok := tbl.RawGetInt(i + 1).(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("index %d is not a number", i+1)
		}

		v := int(n)
		if float64(v) != float64(n) || v < 0 || v > 0xff {
			return nil, fmt.Errorf("index %d: %v is not a byte", i+1, n)
		}

		b[i] = byte(v)
	}

	return b, nil
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case string:
		return lua.LString(v)
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []byte:
		return bytesTable(L, v)
	case fmt.Stringer:
		return lua.LString(v.String())
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
