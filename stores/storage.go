package stores

import (
	"memeverse/config"
	"memeverse/core"
	"memeverse/stores/aws"
	"memeverse/stores/filesystem"
	"memeverse/stores/memory"
	"memeverse/stores/redis"
	"memeverse/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the preference store backend the configuration asks for.
// Unknown or empty types fall back to the in-memory store.
func GetStore(cfg config.StorageConfig) core.PreferenceStore {
	var store core.PreferenceStore

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		basePath := cfg.BasePath
		if basePath == "" {
			basePath = "./data"
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := cfg.DataSourceName
		if dataSourceName == "" {
			dataSourceName = "memeverse.db"
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "s3":
		if cfg.S3Bucket == "" {
			logrus.Fatal("storage.s3_bucket must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3Bucket
		store = aws.NewStore(cfg.S3Bucket)
	case "redis":
		storageField["addr"] = cfg.RedisAddr
		store = redis.NewStore(cfg.RedisAddr, cfg.RedisPassword)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
