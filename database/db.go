package database

import (
	"github.com/go-redis/redis"
	"github.com/go-xorm/xorm"
	"xorm.io/core"
)

// InitDb init database engine. driver is "mysql" or "sqlite3",
// the caller is responsible for importing the matching driver package.
func InitDb(driver, source string) (*xorm.Engine, error) {
	engine, err := xorm.NewEngine(driver, source)
	if err != nil {
		return nil, err
	}

	// engine.ShowSQL(true)

	tbMapper := core.NewPrefixMapper(core.SnakeMapper{}, "t_")
	engine.SetTableMapper(tbMapper)
	engine.SetColumnMapper(core.SnakeMapper{})

	return engine, nil
}

// InitRedis return a redis instance
func InitRedis(addr, password string, db int) *redis.Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return redisdb
}
