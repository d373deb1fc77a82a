package view

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"path"
	"sort"
	"strings"

	_ "golang.org/x/image/webp"
)

// ManifestIcon 对应 web app manifest 中 icons 数组的一项。
type ManifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

var iconMediaTypes = map[string]string{
	".png":  "image/png",
	".webp": "image/webp",
}

// DiscoverIcons 扫描 dir 下的 png/webp 图标，按宽度升序返回。
// 尺寸通过解码图片头获得；文件名包含 "maskable" 的图标会标记 purpose。
func DiscoverIcons(fsys fs.FS, dir, urlPrefix string) ([]ManifestIcon, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read icon dir: %w", err)
	}

	type sized struct {
		icon  ManifestIcon
		width int
	}
	found := make([]sized, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		mediaType, ok := iconMediaTypes[strings.ToLower(path.Ext(name))]
		if !ok {
			continue
		}

		cfg, err := decodeIconConfig(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("decode icon %s: %w", name, err)
		}

		icon := ManifestIcon{
			Src:   strings.TrimRight(urlPrefix, "/") + "/" + name,
			Sizes: fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			Type:  mediaType,
		}
		if strings.Contains(strings.ToLower(name), "maskable") {
			icon.Purpose = "maskable"
		}
		found = append(found, sized{icon: icon, width: cfg.Width})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].width != found[j].width {
			return found[i].width < found[j].width
		}
		return found[i].icon.Src < found[j].icon.Src
	})

	icons := make([]ManifestIcon, 0, len(found))
	for _, item := range found {
		icons = append(icons, item.icon)
	}
	return icons, nil
}

func decodeIconConfig(fsys fs.FS, name string) (image.Config, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return image.Config{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	return cfg, err
}
