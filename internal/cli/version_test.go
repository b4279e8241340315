package cli

import (
	"bytes"
	"strings"
	"testing"

	"buyback-quotes/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	got := out.String()
	if !strings.Contains(got, "version: "+version.Version) || !strings.Contains(got, "commit: "+version.Commit) {
		t.Fatalf("unexpected version output: %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "quote": false, "history": false, "export": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
	if quoteCmd.Annotations[logOutputAnnotation] != "stderr" {
		t.Fatal("quote should log to stderr")
	}
}
