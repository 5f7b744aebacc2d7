package telegram

import (
	"sync"
	"time"
)

const (
	maxPixels        = 18_000_000
	maxDownloadBytes = 20 << 20

	// DefaultDebounce is how long the bot waits for the rest of an album.
	DefaultDebounce = 1200 * time.Millisecond
)

type photoBatch struct {
	chatID int64

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	closed bool
}

var batches sync.Map // "grp:<mediaGroupID>" | "chat:<chatID>" -> *photoBatch
