package config

import (
	"path/filepath"
	"testing"
)

func TestGetEnvironment(t *testing.T) {
	// Table-driven test cases
	tests := []struct {
		name          string
		inputEnv      string
		expectedName  string
		expectedAddr  string
		expectedQCap  int
		expectedJPM   int
		expectedTx    string
		expectDefault bool // If true, we expect the fallback (local) config
	}{
		{
			name:         "Get local environment",
			inputEnv:     "local",
			expectedName: "LOCAL",
			expectedAddr: "localhost:" + ServerPort,
			expectedQCap: 50,
			expectedJPM:  120,
			expectedTx:   "ble",
		},
		{
			name:         "Get remote environment",
			inputEnv:     "remote",
			expectedName: "REMOTO",
			expectedAddr: "0.0.0.0:" + ServerPort,
			expectedQCap: 50,
			expectedJPM:  30,
			expectedTx:   "ble",
		},
		{
			name:         "Get kiosk environment",
			inputEnv:     "kiosk",
			expectedName: "KIOSCO",
			expectedAddr: "127.0.0.1:" + ServerPort,
			expectedQCap: 20,
			expectedJPM:  60,
			expectedTx:   "serial",
		},
		{
			name:          "Get unknown environment (defaults to local)",
			inputEnv:      "unknown_env",
			expectedName:  "LOCAL",
			expectedAddr:  "localhost:" + ServerPort,
			expectedQCap:  50,
			expectedJPM:   120,
			expectedTx:    "ble",
			expectDefault: true,
		},
		{
			name:          "Get empty environment (defaults to local)",
			inputEnv:      "",
			expectedName:  "LOCAL",
			expectedAddr:  "localhost:" + ServerPort,
			expectedQCap:  50,
			expectedJPM:   120,
			expectedTx:    "ble",
			expectDefault: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetEnvironment(tt.inputEnv)

			// Verify key fields
			if got.Name != tt.expectedName {
				t.Errorf("GetEnvironment(%q).Name = %q; want %q", tt.inputEnv, got.Name, tt.expectedName)
			}
			if got.ListenAddr != tt.expectedAddr {
				t.Errorf("GetEnvironment(%q).ListenAddr = %q; want %q", tt.inputEnv, got.ListenAddr, tt.expectedAddr)
			}
			if got.QueueCapacity != tt.expectedQCap {
				t.Errorf("GetEnvironment(%q).QueueCapacity = %d; want %d", tt.inputEnv, got.QueueCapacity, tt.expectedQCap)
			}

			if got.JobsPerMinute != tt.expectedJPM {
				t.Errorf("GetEnvironment(%q).JobsPerMinute = %d; want %d", tt.inputEnv, got.JobsPerMinute, tt.expectedJPM)
			}
			if got.Transport != tt.expectedTx {
				t.Errorf("GetEnvironment(%q).Transport = %q; want %q", tt.inputEnv, got.Transport, tt.expectedTx)
			}

			// Verify timeout settings are reasonable (not zero)
			if got.ReadTimeout == 0 {
				t.Errorf("GetEnvironment(%q).ReadTimeout is 0; expected non-zero duration", tt.inputEnv)
			}
			if got.WriteTimeout == 0 {
				t.Errorf("GetEnvironment(%q).WriteTimeout is 0; expected non-zero duration", tt.inputEnv)
			}

			// Specific check for local environment details if expected
			if tt.expectDefault {
				// Verify it matches the 'local' config exactly
				localCfg := environments["local"]
				if got.Name != localCfg.Name {
					t.Errorf("GetEnvironment(%q) did not return local config as default", tt.inputEnv)
				}
			}
		})
	}
}

func TestEnvironment_LogPath(t *testing.T) {
	// Quick test for the LogPath method as well
	env := Environment{
		ServiceName: "TestService",
	}
	programData := "/var/lib"
	expected := filepath.Join(programData, "TestService", "TestService.log")

	got := env.LogPath(programData)

	if got != expected {
		t.Errorf("LogPath(%q) = %q; want %q", programData, got, expected)
	}
}

func TestGetEnvironment_OriginsFromBuild(t *testing.T) {
	orig := AllowedOrigins
	t.Cleanup(func() { AllowedOrigins = orig })

	AllowedOrigins = "https://pos.example.com,http://localhost:*"
	got := GetEnvironment("remote")
	if len(got.AllowedOrigins) != 2 || got.AllowedOrigins[0] != "https://pos.example.com" {
		t.Errorf("AllowedOrigins = %v; want build override", got.AllowedOrigins)
	}
	if len(environments["remote"].AllowedOrigins) != 3 {
		t.Errorf("build override mutated the environment table")
	}
}

func TestEnvironment_HintPath(t *testing.T) {
	env := Environment{ServiceName: "TestService"}
	expected := filepath.Join("/var/lib", "TestService", "printer-link.json")

	if got := env.HintPath("/var/lib"); got != expected {
		t.Errorf("HintPath = %q; want %q", got, expected)
	}
}
