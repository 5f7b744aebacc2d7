package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message) {
	// last size is the largest
	r.acceptFile(ctx, msg, msg.Photo[len(msg.Photo)-1].FileID)
}

func (r *Router) acceptDocument(ctx context.Context, msg tgbotapi.Message) {
	r.acceptFile(ctx, msg, msg.Document.FileID)
}

func (r *Router) acceptFile(ctx context.Context, msg tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.log().Warn("file url", zap.Int64("chat", cid), zap.Error(err))
		r.send(cid, "Could not fetch that photo from Telegram. Please send it again.")
		return
	}
	img, err := r.download(ctx, url)
	if err != nil {
		r.log().Warn("download", zap.Int64("chat", cid), zap.Error(err))
		r.send(cid, "Could not fetch that photo from Telegram. Please send it again.")
		return
	}

	if r.Debounce <= 0 {
		r.evaluate(ctx, cid, img)
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}
	first := r.addToBatch(ctx, key, cid, img)
	if first {
		r.send(cid, "Got it, reading your work...")
	}
}

// addToBatch appends img to the open batch under key and restarts its timer.
// It reports whether img started the batch.
func (r *Router) addToBatch(ctx context.Context, key string, cid int64, img []byte) bool {
	for {
		bi, _ := batches.LoadOrStore(key, &photoBatch{chatID: cid})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.closed {
			// taken by processBatch after we loaded it
			b.mu.Unlock()
			continue
		}
		b.images = append(b.images, img)
		first := len(b.images) == 1
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(r.Debounce, func() { r.processBatch(ctx, key) })
		b.mu.Unlock()
		return first
	}
}

func (r *Router) processBatch(ctx context.Context, key string) {
	bi, ok := batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)
	b.mu.Lock()
	b.closed = true
	images := append([][]byte(nil), b.images...)
	b.mu.Unlock()

	switch len(images) {
	case 0:
		return
	case 1:
		r.evaluate(ctx, b.chatID, images[0])
		return
	}
	merged, err := stackPages(images)
	if err != nil {
		r.log().Warn("merge album", zap.Int64("chat", b.chatID), zap.Int("photos", len(images)), zap.Error(err))
		r.send(b.chatID, "Could not combine those photos. Please send them one at a time.")
		return
	}
	r.evaluate(ctx, b.chatID, merged)
}

// stackPages draws the pages top to bottom on a white canvas, scaled down to
// maxPixels, and encodes the result as JPEG.
func stackPages(pages [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(pages))
	maxW, sumH := 0, 0
	for i, p := range pages {
		img, _, err := image.Decode(bytes.NewReader(p))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		if w := img.Bounds().Dx(); w > maxW {
			maxW = w
		}
		sumH += img.Bounds().Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("empty pages")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	out := image.Image(canvas)
	if px := maxW * sumH; px > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(px))
		out = scaleDown(canvas, max(1, int(float64(maxW)*scale)), max(1, int(float64(sumH)*scale)))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scaleDown is nearest-neighbour; good enough for handwriting OCR.
func scaleDown(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(sb.Min.X+x*sb.Dx()/w, sy))
		}
	}
	return dst
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	if r.Download != nil {
		return r.Download(ctx, url)
	}
	return download(ctx, url)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := (&http.Client{Timeout: 60 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}
