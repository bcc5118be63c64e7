// Command waysync-demo drives a surface through the commit pipeline: a
// synchronous shared-memory commit, then explicit-sync commits gated on
// software timeline points, then a null attach clearing the content.
package main

import (
	"context"
	"flag"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/waysync"
	"github.com/gogpu/waysync/buffer"
	"github.com/gogpu/waysync/config"
	"github.com/gogpu/waysync/eventloop"
	"github.com/gogpu/waysync/syncobj"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file (stock defaults when empty)")
		width      = flag.Int("width", 256, "buffer width")
		height     = flag.Int("height", 256, "buffer height")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	waysync.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))
	waysync.Configure(cfg)

	loop, err := eventloop.New()
	if err != nil {
		log.Fatalf("Failed to create event loop: %v", err)
	}
	defer loop.Close()

	var demoErr error
	if err := loop.Post(func() {
		demoErr = run(loop, *width, *height)
		loop.Stop()
	}); err != nil {
		log.Fatalf("Failed to post to event loop: %v", err)
	}
	if err := loop.Run(context.Background()); err != nil {
		log.Fatalf("Event loop failed: %v", err)
	}
	if demoErr != nil {
		log.Fatalf("Demo failed: %v", demoErr)
	}
	log.Println("Demo complete")
}

// run executes on the loop goroutine, where all surface state lives.
func run(loop *eventloop.Loop, width, height int) error {
	client := waysync.NewClient(loop)
	surface := waysync.NewSurface(client)
	defer surface.Destroy()

	applies := 0
	surface.Events.Commit.Register(func() { applies++ })

	// Part 1: a shared-memory buffer is readable the moment it is
	// committed, so the state applies in the same turn.
	shm, err := buffer.NewSHMBuffer(width, height, width*4,
		gputypes.TextureFormatRGBA8Unorm, gradient(width, height))
	if err != nil {
		return err
	}
	surface.Attach(buffer.NewRef(shm, nil), image.Point{})
	surface.Damage(image.Rect(0, 0, width, height))
	surface.Commit()
	log.Printf("shared-memory commit applied immediately (applies=%d)", applies)

	// Part 2: explicit sync. Acquire and release points ride on software
	// timelines; the commit parks until the acquire point signals.
	adapter, err := syncobj.Attach(client, surface)
	if err != nil {
		return err
	}
	acq := syncobj.NewTimeline(client)
	rel := syncobj.NewTimeline(client)
	defer acq.Destroy()
	defer rel.Destroy()

	// The demo has no GPU, so a throwaway descriptor stands in for the
	// dmabuf plane.
	plane, err := os.Open(os.DevNull)
	if err != nil {
		return err
	}
	defer plane.Close()

	adapter.SetAcquirePoint(acq, 0, 1)
	adapter.SetReleasePoint(rel, 0, 1)
	surface.Attach(dmabufRef(width, height, int(plane.Fd()), "first"), image.Point{})
	surface.Commit()
	if err := clientError(client); err != nil {
		return err
	}
	log.Printf("explicit commit parked until its acquire point signals (applies=%d)", applies)

	acq.Timeline().Signal(1)
	log.Printf("acquire point 1 signalled, commit applied (applies=%d)", applies)

	// A replacement commit retires the first buffer; its release point
	// fires the moment the engine lets go of it.
	adapter.SetAcquirePoint(acq, 0, 2)
	adapter.SetReleasePoint(rel, 0, 2)
	surface.Attach(dmabufRef(width, height, int(plane.Fd()), "second"), image.Point{})
	surface.Commit()
	if err := clientError(client); err != nil {
		return err
	}
	acq.Timeline().Signal(2)
	log.Printf("replacement applied, release timeline reached %d (applies=%d)",
		rel.Timeline().Value(), applies)

	// Part 3: a null attach clears the content and discards anything
	// still queued.
	surface.Attach(nil, image.Point{})
	surface.Commit()
	if surface.Current().Buffer.Buf != nil {
		log.Println("null attach left content behind")
	} else {
		log.Printf("null attach cleared the surface, second release reached %d (applies=%d)",
			rel.Timeline().Value(), applies)
	}
	return nil
}

// gradient fills a pixel slab with a vertical color ramp.
func gradient(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		r := byte(25 + t*100)
		g := byte(50 + t*75)
		b := byte(100 + t*50)
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pixels[i+0] = r
			pixels[i+1] = g
			pixels[i+2] = b
			pixels[i+3] = 0xFF
		}
	}
	return pixels
}

// dmabufRef wraps a fake dmabuf whose release is logged as the producer
// getting its buffer back.
func dmabufRef(width, height, planeFD int, name string) *buffer.Ref {
	buf, err := buffer.NewDMABuffer(width, height,
		gputypes.TextureFormatRGBA8Unorm, []int{planeFD}, nil)
	if err != nil {
		log.Fatalf("Failed to create dmabuf: %v", err)
	}
	return buffer.NewRef(buf, func(buffer.Buffer) {
		log.Printf("%s dmabuf handed back to its producer", name)
	})
}

// clientError surfaces a protocol error as a demo failure.
func clientError(client *waysync.Client) error {
	if perr := client.LastError(); perr != nil {
		return perr
	}
	return nil
}
