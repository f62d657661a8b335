package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Run Lua scripts that send Morse code.
 *
 * Description:	A script sees a global table "morse":
 *
 *		    morse.speed([wpm])		Get, or set and get, the speed.
 *		    morse.tone([hz])		Same for the side tone.  0 is ignored.
 *		    morse.send(fmt, ...)	string.format, then transmit.
 *		    morse.capture(fn)		Run fn with print going to the
 *						transmitter, all as one message.
 *		    morse.units(s)		Length of s in dit units.
 *
 *		print normally goes to the host's output.  Inside
 *		capture it goes to the transmitter instead, and is put
 *		back when fn returns, even if it raised an error.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

type ScriptHost struct {
	L   *lua.LState
	tx  *Transmitter
	ctx context.Context
	out io.Writer // Where print goes right now.
}

func NewScriptHost(ctx context.Context, tx *Transmitter, out io.Writer) *ScriptHost {
	var h = &ScriptHost{
		L:   lua.NewState(),
		tx:  tx,
		ctx: ctx,
		out: out,
	}

	h.L.SetContext(ctx)

	var morse = h.L.NewTable()
	h.L.SetFuncs(morse, map[string]lua.LGFunction{
		"speed":   h.luaSpeed,
		"tone":    h.luaTone,
		"send":    h.luaSend,
		"capture": h.luaCapture,
		"units":   h.luaUnits,
	})
	h.L.SetGlobal("morse", morse)
	h.L.SetGlobal("print", h.L.NewFunction(h.luaPrint))

	return h
}

func (h *ScriptHost) DoString(src string) error {
	return h.L.DoString(src)
}

func (h *ScriptHost) DoFile(path string) error {
	return h.L.DoFile(path)
}

func (h *ScriptHost) Close() {
	h.L.Close()
}

func (h *ScriptHost) luaPrint(L *lua.LState) int {
	var parts = make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}

	if _, err := io.WriteString(h.out, strings.Join(parts, "\t")+"\n"); err != nil {
		L.RaiseError("print: %s", err)
	}
	return 0
}

func (h *ScriptHost) luaSpeed(L *lua.LState) int {
	if L.GetTop() >= 1 {
		L.Push(lua.LNumber(h.tx.SetSpeed(L.CheckInt(1))))
		return 1
	}
	L.Push(lua.LNumber(h.tx.Speed()))
	return 1
}

func (h *ScriptHost) luaTone(L *lua.LState) int {
	L.Push(lua.LNumber(h.tx.SetTone(L.OptInt(1, 0))))
	return 1
}

// format calls Lua's own string.format with our arguments.
func (h *ScriptHost) format(L *lua.LState) (string, error) {
	var args = make([]lua.LValue, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}

	if len(args) == 1 {
		return L.CheckString(1), nil
	}

	var format = L.GetField(L.GetGlobal("string"), "format")
	if err := L.CallByParam(lua.P{Fn: format, NRet: 1, Protect: true}, args...); err != nil {
		return "", err
	}

	var s = L.Get(-1)
	L.Pop(1)
	return lua.LVAsString(s), nil
}

func (h *ScriptHost) luaSend(L *lua.LState) int {
	L.CheckString(1)

	var s, err = h.format(L)
	if err != nil {
		L.RaiseError("morse.send: %s", err)
		return 0
	}

	if err := h.tx.Transmit(h.ctx, s); err != nil {
		L.RaiseError("morse.send: %s", err)
	}
	return 0
}

func (h *ScriptHost) luaCapture(L *lua.LState) int {
	var fn = L.CheckFunction(1)

	var err = h.tx.WithSink(h.ctx, func(w io.Writer) error {
		var saved = h.out
		h.out = w
		defer func() { h.out = saved }()

		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})

	if err != nil {
		L.RaiseError("morse.capture: %s", err)
	}
	return 0
}

func (h *ScriptHost) luaUnits(L *lua.LState) int {
	L.Push(lua.LNumber(h.tx.Timing().Units(L.CheckString(1))))
	return 1
}

// RunScript runs one file with a fresh host.
func RunScript(ctx context.Context, tx *Transmitter, out io.Writer, path string) error {
	var h = NewScriptHost(ctx, tx, out)
	defer h.Close()

	if err := h.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}
