package models

import "time"

// FileMetadata снимок метаданных файла, снятый один раз на запрос.
type FileMetadata struct {
	Size    uint64    `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}
