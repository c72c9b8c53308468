package platform

import (
	"errors"
	"os"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestSudoIdentity(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		uid     int
		gid     int
		ok      bool
		wantErr bool
	}{
		{"not under sudo", map[string]string{}, 0, 0, false, false},
		{"uid and gid", map[string]string{"SUDO_UID": "1000", "SUDO_GID": "100"}, 1000, 100, true, false},
		{"gid defaults to uid", map[string]string{"SUDO_UID": "501"}, 501, 501, true, false},
		{"bad uid", map[string]string{"SUDO_UID": "abc"}, 0, 0, false, true},
		{"bad gid", map[string]string{"SUDO_UID": "1000", "SUDO_GID": "x"}, 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uid, gid, ok, err := sudoIdentity(envMap(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if uid != tt.uid || gid != tt.gid || ok != tt.ok {
				t.Errorf("sudoIdentity = (%d, %d, %v), want (%d, %d, %v)", uid, gid, ok, tt.uid, tt.gid, tt.ok)
			}
		})
	}
}

func TestDropRootAsRegularUser(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("test must run as a regular user")
	}
	dropped, err := DropRoot()
	if err != nil && !errors.Is(err, ErrRunningAsRoot) {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped {
		t.Error("DropRoot should not drop privileges for a regular user")
	}
}
