package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) isLoggedIn(context.Context) bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error {
	f.calls = append(f.calls, "register")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Login(context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Refresh(context.Context) error { f.calls = append(f.calls, "refresh"); return nil }
func (f *fakeExec) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(context.Context) error { f.calls = append(f.calls, "status"); return nil }

func TestRunREPL_DispatchesCommands(t *testing.T) {
	f := &fakeExec{}
	var out bytes.Buffer

	in := "help\n\nlogin\nstatus\nrefresh\nhelp\nlogout\nbogus\nexit\nregister\n"
	runREPL(context.Background(), f, func(context.Context) string { return "" }, rdr(in), &out)

	assert.Equal(t, []string{"login", "status", "refresh", "logout"}, f.calls, "nothing after exit runs")
	assert.Contains(t, out.String(), "Available commands: register, login, exit")
	assert.Contains(t, out.String(), "Available commands: status, refresh, logout, login, exit")
	assert.Contains(t, out.String(), "Unknown command: bogus")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	f := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), f, func(context.Context) string { return "(me)" }, rdr("register"), &out)

	assert.Equal(t, []string{"register"}, f.calls)
	assert.Contains(t, out.String(), "authkeeper (me)> ")
}

func TestRunREPL_StopsOnCanceledContext(t *testing.T) {
	f := &fakeExec{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runREPL(ctx, f, func(context.Context) string { return "" }, rdr("login\n"), &bytes.Buffer{})
	assert.Empty(t, f.calls)
}
