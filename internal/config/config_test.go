package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
[client]
number = 3
n = 10
k = 8
data_size = 100 MiB
storage_size = 1 GiB
upload_speed = 500 KiB
download_speed = 2 MiB
average_uptime = 8 hours
average_downtime = 16 hours
average_lifetime = 1 year
average_recover_time = 3 days
arrival_time = 0

[server]
number = 1
n = 4
k = 2
data_size = 4096
storage_size = 12288
upload_speed = 1024
download_speed = 1024
average_uptime = 1 day
average_downtime = 0
average_lifetime = inf
average_recover_time = 1 s
arrival_time = 30 s
`

func TestLoadBytes_ExpandsClasses(t *testing.T) {
	specs, err := LoadBytes([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	if len(specs) != 4 {
		t.Fatalf("expanded %d nodes, want 4", len(specs))
	}

	wantNames := []string{"client-0", "client-1", "client-2", "server-0"}
	for i, want := range wantNames {
		if specs[i].Name != want {
			t.Fatalf("spec %d named %q, want %q", i, specs[i].Name, want)
		}
	}

	client := specs[0]
	if client.N != 10 || client.K != 8 {
		t.Fatalf("client coding parameters: n=%d k=%d", client.N, client.K)
	}
	if client.DataSize != 100<<20 {
		t.Fatalf("client data size = %d, want %d", client.DataSize, 100<<20)
	}
	if client.StorageSize != 1<<30 {
		t.Fatalf("client storage size = %d, want %d", client.StorageSize, 1<<30)
	}
	if client.UploadSpeed != 500<<10 || client.DownloadSpeed != 2<<20 {
		t.Fatalf("client speeds: %v/%v", client.UploadSpeed, client.DownloadSpeed)
	}
	if client.AverageUptime != 8*3600 || client.AverageDowntime != 16*3600 {
		t.Fatalf("client uptime/downtime: %v/%v", client.AverageUptime, client.AverageDowntime)
	}
	if client.AverageLifetime != 365*86400 {
		t.Fatalf("client lifetime = %v", client.AverageLifetime)
	}

	server := specs[3]
	if server.DataSize != 4096 || server.StorageSize != 12288 {
		t.Fatalf("plain byte sizes mishandled: %d/%d", server.DataSize, server.StorageSize)
	}
	if !math.IsInf(server.AverageLifetime, 1) {
		t.Fatalf("lifetime 'inf' should parse to +Inf, got %v", server.AverageLifetime)
	}
	if server.AverageDowntime != 0 || server.ArrivalTime != 30 {
		t.Fatalf("server times: downtime=%v arrival=%v", server.AverageDowntime, server.ArrivalTime)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.cfg")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	specs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("expanded %d nodes, want 4", len(specs))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.cfg")); err == nil {
		t.Fatalf("missing file should error")
	}
}

func TestLoadBytes_Errors(t *testing.T) {
	valid := map[string]string{
		"number": "1", "n": "4", "k": "2",
		"data_size": "4096", "storage_size": "12288",
		"upload_speed": "1024", "download_speed": "1024",
		"average_uptime": "1 day", "average_downtime": "0",
		"average_lifetime": "inf", "average_recover_time": "1 s",
		"arrival_time": "0",
	}

	render := func(overrides map[string]string, drop string) string {
		var sb strings.Builder
		sb.WriteString("[class]\n")
		for key, value := range valid {
			if key == drop {
				continue
			}
			if v, ok := overrides[key]; ok {
				value = v
			}
			sb.WriteString(key + " = " + value + "\n")
		}
		return sb.String()
	}

	cases := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"missing key", render(nil, "data_size"), `"data_size": missing`},
		{"bad size", render(map[string]string{"storage_size": "much"}, ""), `"storage_size"`},
		{"bad span", render(map[string]string{"average_uptime": "sometimes"}, ""), `"average_uptime"`},
		{"bad number", render(map[string]string{"number": "-2"}, ""), `"number"`},
		{"k above n", render(map[string]string{"k": "9"}, ""), "k must be in"},
		{
			"storage below own blocks",
			render(map[string]string{"storage_size": "4096"}, ""),
			"cannot hold its own",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tc.text))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %v, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadBytes_ZeroInstances(t *testing.T) {
	text := strings.Replace(sampleConfig, "number = 3", "number = 0", 1)

	specs, err := LoadBytes([]byte(text))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("a class with number = 0 should produce no nodes, got %d total", len(specs))
	}
	if specs[0].Name != "server-0" {
		t.Fatalf("unexpected survivor %q", specs[0].Name)
	}
}
