package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
	"github.com/ws-chat/hub"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

func handleInterrupt(hub *hub.Hub, sc chan os.Signal) {
	<-sc
	hub.Close()
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	configFile := flag.String("config", "conf.ini", "config file")
	flag.Parse()

	// read config
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Panicln(err)
	}

	if cfg.Database.Driver == "sqlite3" {
		dataDir := filepath.Dir(cfg.Database.Source)
		if _, err := os.Stat(dataDir); err != nil {
			if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
				log.Panicln(err)
			}
		}
	}

	engine, err := database.InitDb(cfg.Database.Driver, cfg.Database.Source)
	if err != nil {
		log.Panicln(err)
	}
	store, err := database.NewSQLStore(engine)
	if err != nil {
		log.Panicln(err)
	}

	var presence database.PresenceCache
	if cfg.Server.Mode == config.ModeCluster {
		redis := database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Db)
		presence = database.NewRedisPresenceCache(redis)
	} else {
		presence = database.NewMemPresenceCache()
	}

	// new server
	h, err := hub.NewHub(cfg, store, presence)
	if err != nil {
		log.Panicln(err)
	}

	// listen sys.exit
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)

	go handleInterrupt(h, sc)

	h.Run()
}
