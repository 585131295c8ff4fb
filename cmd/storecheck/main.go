package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	appcfg "github.com/park285/irc-chessbot/internal/config"
	"github.com/park285/irc-chessbot/internal/pvpchess"
	"github.com/park285/irc-chessbot/pkg/chessdto"
)

// storecheck replays every stored ongoing game and reports the ones that no
// longer load. With -prune those entries are removed from the store.
func main() {
	prune := flag.Bool("prune", false, "delete games whose history does not replay")
	flag.Parse()

	appcfg.LoadDotenv()
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store pvpchess.Store
	switch cfg.OngoingStore {
	case "redis":
		rs, err := pvpchess.NewRedisStore(ctx, cfg.RedisURL, cfg.Nick)
		if err != nil {
			log.Fatalf("redis store: %v", err)
		}
		defer rs.Close()
		log.Printf("store: redis key=%s", rs.Key())
		store = rs
	default:
		fs, err := pvpchess.NewFileStore(cfg.OngoingPath())
		if err != nil {
			log.Fatalf("file store: %v", err)
		}
		log.Printf("store: file path=%s", fs.Path())
		store = fs
	}

	doc, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("load: %v", err)
	}

	broken := check(doc, os.Stdout)
	log.Printf("games=%d broken=%d", doc.Count(), len(broken))
	if len(broken) == 0 || !*prune {
		if len(broken) > 0 {
			os.Exit(1)
		}
		return
	}
	for _, b := range broken {
		doc.Delete(b.p1, b.p2, b.channel)
	}
	if err := store.Save(ctx, doc); err != nil {
		log.Fatalf("save: %v", err)
	}
	log.Printf("pruned %d games", len(broken))
}

type entry struct {
	p1, p2, channel string
}

// check prints one line per stored game in a stable order and returns the
// games whose history fails to replay.
func check(doc chessdto.OngoingGames, w io.Writer) []entry {
	var all []entry
	for p1, chans := range doc {
		for channel, opps := range chans {
			for p2 := range opps {
				all = append(all, entry{p1: p1, p2: p2, channel: channel})
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].channel != all[j].channel {
			return all[i].channel < all[j].channel
		}
		if all[i].p1 != all[j].p1 {
			return all[i].p1 < all[j].p1
		}
		return all[i].p2 < all[j].p2
	})

	var broken []entry
	for _, e := range all {
		moves := doc[e.p1][e.channel][e.p2]
		g, err := pvpchess.Replay(e.p1, e.p2, e.channel, moves, time.Now())
		if err != nil {
			fmt.Fprintf(w, "BROKEN %s %s vs %s: %v\n", e.channel, e.p1, e.p2, err)
			broken = append(broken, e)
			continue
		}
		fmt.Fprintf(w, "ok     %s %s vs %s plies=%d turn=%s fen=%s\n", e.channel, e.p1, e.p2, g.Len(), g.Who(), g.FEN())
	}
	return broken
}
