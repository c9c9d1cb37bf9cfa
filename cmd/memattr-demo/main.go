package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nmxmxh/memattr"
)

// pageMapper is a toy Listener standing in for whatever actually backs
// pages when they become shared (a DMA remap, an mmap, a vhost-user
// notification, ...). It just prints what it would do.
type pageMapper struct {
	name string
}

func (p *pageMapper) NotifyPopulate(s memattr.Section) error {
	fmt.Printf("[%s] map  offset=%d size=%d\n", p.name, s.Offset, s.Size)
	return nil
}

func (p *pageMapper) NotifyDiscard(s memattr.Section) {
	fmt.Printf("[%s] unmap offset=%d size=%d\n", p.name, s.Offset, s.Size)
}

func main() {
	fmt.Println("memattr demo starting...")

	const pageSize = 4096
	region := memattr.NewStaticRegion(16*pageSize, pageSize)

	mgr := memattr.NewManager(memattr.Config{PageSize: pageSize})
	if err := mgr.Realize(region); err != nil {
		fmt.Println("realize failed:", err)
		os.Exit(1)
	}
	defer mgr.Unrealize()

	dma := memattr.NewBreakerListener(&pageMapper{name: "dma"}, memattr.BreakerConfig{
		Name:        "dma-mapper",
		MaxFailures: 3,
		OpenTimeout: 2 * time.Second,
	})
	mgr.RegisterListener(dma, memattr.Section{Offset: 0, Size: region.Size()})

	limited, err := memattr.NewRateLimitedManager(mgr, memattr.RateLimitConfig{
		PerSecond: 100,
		Burst:     10,
	})
	if err != nil {
		fmt.Println("rate limiter setup failed:", err)
		os.Exit(1)
	}

	if err := limited.StateChange("vcpu0", 2*pageSize, 4*pageSize, false); err != nil {
		fmt.Println("share failed:", err)
		os.Exit(1)
	}

	fmt.Println("populated:", mgr.IsPopulated(memattr.Section{Offset: 2 * pageSize, Size: 4 * pageSize}))

	if err := limited.StateChange("vcpu0", 3*pageSize, pageSize, true); err != nil {
		fmt.Println("unshare failed:", err)
		os.Exit(1)
	}

	mgr.ReplayPopulated(memattr.Section{Offset: 0, Size: region.Size()}, func(s memattr.Section, _ interface{}) int {
		fmt.Printf("still shared: offset=%d size=%d\n", s.Offset, s.Size)
		return 0
	}, nil)

	fmt.Println("memattr demo done")
}
