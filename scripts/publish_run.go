//go:build ignore

// Republishes a finished run to the done stream so the ingest worker can
// load it into the results store.
//
//	go run scripts/publish_run.go -checkpoint outputs/20240601_103015/checkpoint.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/earthwork-discovery/internal/domain"
	"github.com/earthwork-discovery/internal/repository/filesystem"
	"github.com/redis/go-redis/v9"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	stream := flag.String("stream", domain.StreamDiscoveryDone, "stream to publish to")
	group := flag.String("group", "discovery-ingest", "consumer group to watch")
	checkpoint := flag.String("checkpoint", "", "path to a run checkpoint.json")
	flag.Parse()

	if *checkpoint == "" {
		log.Fatal("-checkpoint is required")
	}

	cp, err := filesystem.ReadCheckpoint(*checkpoint)
	if err != nil {
		log.Fatalf("Failed to read checkpoint: %v", err)
	}
	var hotspots []domain.Hotspot
	if path, ok := cp.Outputs[domain.OutputHotspots]; ok {
		if hotspots, err = filesystem.ReadHotspots(path); err != nil {
			log.Fatalf("Failed to read hotspots: %v", err)
		}
	}
	event := domain.NewRunCompletedEvent(cp, hotspots)
	event.CheckpointPath = *checkpoint

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: *stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Published run %s\n", event.RunID)
	fmt.Printf("  stream:   %s\n", *stream)
	fmt.Printf("  message:  %s\n", id)
	fmt.Printf("  hotspots: %d\n", event.HotspotCount)

	fmt.Printf("\nWaiting for group %q to acknowledge...\n", *group)

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for acknowledgement")
			return
		case <-ticker.C:
			groups, err := client.XInfoGroups(ctx, *stream).Result()
			if err != nil {
				continue
			}
			for _, g := range groups {
				if g.Name != *group {
					continue
				}
				if g.LastDeliveredID == id && g.Pending == 0 {
					fmt.Println("Run ingested")
					return
				}
			}
		}
	}
}
