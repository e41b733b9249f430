package main

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := rootCmd()

	want := map[string]bool{"serve": false, "migrate": false, "seed": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	if cmd.Flags().Lookup("memory") == nil {
		t.Error("root command should accept serve flags")
	}
	seed, _, err := cmd.Find([]string{"seed"})
	if err != nil {
		t.Fatalf("find seed: %v", err)
	}
	if seed.Flags().Lookup("file") == nil {
		t.Error("seed command should accept --file")
	}
}
