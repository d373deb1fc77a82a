package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures 描述一次播种写入的全部数据，记录之间通过 ref 互相引用。
type Fixtures struct {
	Templates          []TemplateFixture          `yaml:"templates"`
	ChallengePointMaps []ChallengePointMapFixture `yaml:"challengePointMaps"`
	Users              []UserFixture              `yaml:"users"`
	Activities         []ActivityFixture          `yaml:"activities"`
}

type TemplateFixture struct {
	Ref         string `yaml:"ref"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type ChallengePointMapFixture struct {
	Ref       string `yaml:"ref"`
	Challenge string `yaml:"challenge"`
	Points    int    `yaml:"points"`
	Template  string `yaml:"template"`
}

type UserFixture struct {
	Ref     string `yaml:"ref"`
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	IsAdmin bool   `yaml:"isAdmin"`
}

type ActivityFixture struct {
	User              string `yaml:"user"`
	ChallengePointMap string `yaml:"challengePointMap"`
}

// DefaultFixtures 返回内置的示例数据。
func DefaultFixtures() (Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures 从 YAML 文件读取数据，path 为空时使用内置数据。
func LoadFixtures(path string) (Fixtures, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultFixtures()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures 解析并校验引用关系，未知引用在写库前即报错。
func ParseFixtures(raw []byte) (Fixtures, error) {
	var fixtures Fixtures
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := fixtures.validate(); err != nil {
		return Fixtures{}, err
	}
	return fixtures, nil
}

func (f Fixtures) validate() error {
	templates := make(map[string]struct{}, len(f.Templates))
	for _, t := range f.Templates {
		if err := addRef(templates, "template", t.Ref); err != nil {
			return err
		}
	}

	maps := make(map[string]struct{}, len(f.ChallengePointMaps))
	for _, m := range f.ChallengePointMaps {
		if err := addRef(maps, "challenge point map", m.Ref); err != nil {
			return err
		}
		if _, ok := templates[m.Template]; !ok {
			return fmt.Errorf("challenge point map %q references unknown template %q", m.Ref, m.Template)
		}
	}

	users := make(map[string]struct{}, len(f.Users))
	for _, u := range f.Users {
		if err := addRef(users, "user", u.Ref); err != nil {
			return err
		}
		if strings.TrimSpace(u.Email) == "" {
			return fmt.Errorf("user %q has no email", u.Ref)
		}
	}

	for idx, a := range f.Activities {
		if _, ok := users[a.User]; !ok {
			return fmt.Errorf("activity #%d references unknown user %q", idx+1, a.User)
		}
		if _, ok := maps[a.ChallengePointMap]; !ok {
			return fmt.Errorf("activity #%d references unknown challenge point map %q", idx+1, a.ChallengePointMap)
		}
	}
	return nil
}

func addRef(seen map[string]struct{}, kind, ref string) error {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return fmt.Errorf("%s fixture is missing ref", kind)
	}
	if _, dup := seen[trimmed]; dup {
		return fmt.Errorf("duplicate %s ref %q", kind, trimmed)
	}
	seen[trimmed] = struct{}{}
	return nil
}
