package dialog

import (
	"time"

	"github.com/tassie-labs/expect/pattern"
)

func expectSendStep(name, expect, send string) Step {
	p := pattern.NewLiteral(expect)
	return Step{Name: name, Expect: &p, Send: send}
}

// Login builds a two-step username/password dialog.
func Login(username, password string) *Dialog {
	d := New("login")
	d.Step(expectSendStep("username", "login:", username+"\n"))
	d.Step(expectSendStep("password", "assword:", password+"\n"))
	return d
}

// SSH builds a dialog that accepts an unknown host key before
// authenticating, grounded on the three-step SSH flow from
// original_source's dialog/common.rs.
func SSH(host, username, password string) *Dialog {
	d := New("ssh")
	d.Var("HOST", host).Var("USER", username).Var("PASS", password)
	hostkey := expectSendStep("hostkey", "(yes/no", "yes\n")
	hostkey.Next = "password"
	d.Step(hostkey)
	d.Step(expectSendStep("password", "assword:", "${PASS}\n"))
	return d
}

// Sudo builds a single-step sudo password dialog.
func Sudo(password string) *Dialog {
	d := New("sudo")
	d.Step(expectSendStep("password", "[sudo] password", password+"\n"))
	return d
}

// Confirm builds a yes/no confirmation dialog.
func Confirm(answer bool) *Dialog {
	response := "no\n"
	if answer {
		response = "yes\n"
	}
	d := New("confirm")
	d.Step(expectSendStep("confirm", "[y/n]", response))
	return d
}

// Menu builds a single-choice menu selection dialog.
func Menu(selection string) *Dialog {
	d := New("menu")
	d.Step(expectSendStep("select", "choice:", selection+"\n"))
	return d
}

// FTP builds a username/password FTP login dialog.
func FTP(username, password string) *Dialog {
	d := New("ftp")
	d.Step(expectSendStep("user", "Name", username+"\n"))
	d.Step(expectSendStep("pass", "Password", password+"\n"))
	return d
}

// Telnet builds a username/password telnet login dialog.
func Telnet(username, password string) *Dialog {
	d := New("telnet")
	d.Step(expectSendStep("login", "login:", username+"\n"))
	d.Step(expectSendStep("password", "Password:", password+"\n"))
	return d
}

// GitCredential builds a username/password git credential-prompt dialog.
func GitCredential(username, password string) *Dialog {
	d := New("git")
	d.Step(expectSendStep("user", "Username", username+"\n"))
	d.Step(expectSendStep("pass", "Password", password+"\n"))
	return d
}

// ShellPrompt builds a single-step dialog that waits for prompt with a 5s
// timeout, useful as the tail of a larger script.
func ShellPrompt(prompt string) *Dialog {
	d := New("shell")
	p := pattern.NewLiteral(prompt)
	d.Step(Step{Name: "prompt", Expect: &p, Timeout: 5 * time.Second})
	return d
}
