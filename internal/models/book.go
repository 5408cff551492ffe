package models

import "time"

type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	CoverURL    string
	DriveFileID string // Google Drive file for the embedded viewer
	Categories  []string
	IsActive    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
