package static

import "embed"

var (
	//go:embed css js robots.txt
	Files embed.FS
)
