package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"RoomFM/config"
	"RoomFM/db"
	"RoomFM/storage"
	"RoomFM/store"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出房间和点歌数据",
	Long:  `把所有房间和点歌记录打包成zip上传到对象存储，并打印下载链接。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		defer db.CloseRedis()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		exporter := storage.NewExporter(
			store.NewRoomStore(db.RedisClient),
			store.NewRequestStore(db.RedisClient),
			cfg.MinioBucket,
		)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		object, url, err := exporter.Export(ctx)
		if err != nil {
			log.Fatalf("导出失败: %v", err)
		}
		fmt.Printf("导出完成: %s\n%s\n", object, url)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
