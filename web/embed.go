// Package web 打包页面模板与前端静态资源。
package web

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"

	"github.com/pointlog/internal/pwa"
)

const (
	// StaticPrefix 是静态资源挂载的 URL 前缀
	StaticPrefix = "/static"
	// IconDir 是内嵌图标在静态目录中的位置
	IconDir = "icons"
	// WorkerPath 是 worker 脚本在静态目录中的位置
	WorkerPath = "js/entry.worker.js"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates 解析全部内嵌页面模板。
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// Static 返回以 static 目录为根的文件系统。
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// WorkerScript 返回 worker 脚本内容，需要从站点根路径提供以获得整站作用域。
func WorkerScript() ([]byte, error) {
	return fs.ReadFile(Static(), WorkerPath)
}

// BuildAssetManifest 列出 fsys 内全部文件的 URL，版本号取内容摘要。
// 浏览器端 worker 会按该列表预缓存资源。
func BuildAssetManifest(fsys fs.FS, prefix string) (pwa.AssetManifest, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return pwa.AssetManifest{}, fmt.Errorf("walk assets: %w", err)
	}
	sort.Strings(files)

	digest := sha256.New()
	assets := make([]string, 0, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return pwa.AssetManifest{}, fmt.Errorf("read asset %s: %w", name, err)
		}
		digest.Write([]byte(name))
		digest.Write(data)
		assets = append(assets, path.Join("/", prefix, name))
	}

	return pwa.AssetManifest{
		Version: hex.EncodeToString(digest.Sum(nil))[:12],
		Assets:  assets,
	}, nil
}
