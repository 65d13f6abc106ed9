package hub

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ReadmeFile carries a space's manifest as YAML front matter.
const ReadmeFile = "README.md"

// SpaceSDKs are the runtimes a space can declare.
var SpaceSDKs = []string{"streamlit", "gradio", "static", "docker"}

// ErrNoManifest is returned when a space folder has no usable manifest.
var ErrNoManifest = errors.New("hub: space folder has no README.md manifest")

// SpaceManifest is the front matter of a space README.
type SpaceManifest struct {
	Title   string `yaml:"title,omitempty"`
	Emoji   string `yaml:"emoji,omitempty"`
	SDK     string `yaml:"sdk"`
	AppFile string `yaml:"app_file,omitempty"`
	AppPort int    `yaml:"app_port,omitempty"`
	Pinned  bool   `yaml:"pinned"`
}

// Validate checks the sdk is known and a docker space names its port.
func (m SpaceManifest) Validate() error {
	if !ValidSDK(m.SDK) {
		return fmt.Errorf("hub: unknown space sdk %q, want one of %v", m.SDK, SpaceSDKs)
	}
	if m.SDK == "docker" && m.AppPort <= 0 {
		return fmt.Errorf("hub: docker space needs app_port")
	}
	return nil
}

func ValidSDK(sdk string) bool {
	for _, s := range SpaceSDKs {
		if s == sdk {
			return true
		}
	}
	return false
}

var frontMatterFence = []byte("---")

// ParseManifest reads the front matter of a README. ok is false when the
// README has none.
func ParseManifest(readme []byte) (m SpaceManifest, ok bool, err error) {
	readme = bytes.TrimPrefix(readme, []byte("\ufeff"))
	if !bytes.HasPrefix(readme, frontMatterFence) {
		return m, false, nil
	}
	rest := readme[len(frontMatterFence):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterFence...))
	if end < 0 {
		return m, false, fmt.Errorf("hub: unterminated README front matter")
	}
	if err := yaml.Unmarshal(rest[:end], &m); err != nil {
		return m, false, fmt.Errorf("hub: README front matter: %w", err)
	}
	return m, true, nil
}

// RenderManifest returns a README with m as front matter followed by body.
func RenderManifest(m SpaceManifest, body string) ([]byte, error) {
	y, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(frontMatterFence)
	buf.WriteByte('\n')
	buf.Write(y)
	buf.Write(frontMatterFence)
	buf.WriteString("\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// EnsureManifest returns the manifest of folder/README.md. When the README
// or its front matter is missing and sdk is set, a manifest is generated and
// written in front of any existing README text.
func EnsureManifest(folder, sdk string, appPort int, title string) (SpaceManifest, error) {
	path := filepath.Join(folder, ReadmeFile)
	readme, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return SpaceManifest{}, fmt.Errorf("hub: %w", err)
	}
	m, ok, err := ParseManifest(readme)
	if err != nil {
		return SpaceManifest{}, err
	}
	if ok {
		return m, m.Validate()
	}
	if sdk == "" {
		return SpaceManifest{}, ErrNoManifest
	}

	m = SpaceManifest{Title: title, Emoji: "🧳", SDK: sdk}
	if sdk == "docker" {
		m.AppPort = appPort
	}
	if err := m.Validate(); err != nil {
		return SpaceManifest{}, err
	}
	out, err := RenderManifest(m, string(readme))
	if err != nil {
		return SpaceManifest{}, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return SpaceManifest{}, fmt.Errorf("hub: %w", err)
	}
	return m, nil
}
