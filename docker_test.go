package wpfront_test

import (
	"os"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージはdistrolessであること（healthcheckサブコマンドを前提とする）
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") {
		t.Errorf("final stage should use a distroless image, got: %s", lastFrom)
	}
}

func TestDockerfileBuildsWpfront(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "./cmd/wpfront") {
		t.Error("Dockerfile should build ./cmd/wpfront")
	}
	if !strings.Contains(content, `ENTRYPOINT ["/usr/local/bin/wpfront"]`) {
		t.Error("Dockerfile should use the wpfront binary as ENTRYPOINT")
	}
	if !strings.Contains(content, `"healthcheck"`) {
		t.Error("Dockerfile should define a HEALTHCHECK using the healthcheck subcommand")
	}
}

type composeFile struct {
	Services map[string]struct {
		Image    string   `yaml:"image"`
		Command  []string `yaml:"command"`
		Networks []string `yaml:"networks"`
	} `yaml:"services"`
	Networks map[string]struct {
		Internal bool `yaml:"internal"`
	} `yaml:"networks"`
}

func loadCompose(t *testing.T) composeFile {
	t.Helper()
	var c composeFile
	if err := yaml.Unmarshal([]byte(readFile(t, "docker-compose.yml")), &c); err != nil {
		t.Fatalf("docker-compose.yml should be valid YAML: %v", err)
	}
	return c
}

func TestDockerComposeServices(t *testing.T) {
	c := loadCompose(t)

	for _, name := range []string{"api", "worker", "migrate", "db"} {
		if _, ok := c.Services[name]; !ok {
			t.Errorf("docker-compose.yml should contain service %q", name)
		}
	}

	if img := c.Services["db"].Image; !strings.HasPrefix(img, "postgres:") {
		t.Errorf("db should use a PostgreSQL image, got %q", img)
	}
	if cmd := c.Services["worker"].Command; !slices.Equal(cmd, []string{"worker"}) {
		t.Errorf("worker command = %v, want [worker]", cmd)
	}
	if cmd := c.Services["migrate"].Command; !slices.Equal(cmd, []string{"migrate"}) {
		t.Errorf("migrate command = %v, want [migrate]", cmd)
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	c := loadCompose(t)

	if !c.Networks["backend"].Internal {
		t.Error("backend network should be internal")
	}
	if c.Networks["external"].Internal {
		t.Error("external network should not be internal")
	}

	// CMSへ外部通信するのはapiのみ
	for name, svc := range c.Services {
		hasExternal := slices.Contains(svc.Networks, "external")
		if name == "api" && !hasExternal {
			t.Error("api should join the external network")
		}
		if name != "api" && hasExternal {
			t.Errorf("%s should not join the external network", name)
		}
	}
}
