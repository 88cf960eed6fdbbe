package httpapp

import (
	"embed"
	"io"
	"io/fs"
	"strings"
)

//go:embed static/*
var staticFS embed.FS

// assets holds files bundled with the binary, such as the default avatar.
var assets, _ = fs.Sub(staticFS, "static")

func openAsset(name string) (io.ReadSeekCloser, error) {
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return nil, fs.ErrNotExist
	}
	f, err := assets.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	rs, ok := f.(io.ReadSeekCloser)
	if !ok {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return rs, nil
}
