package cmd

import (
	"RoomFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动RoomFM服务器",
	Long:  `启动RoomFM听歌房系统的HTTP服务器，提供房间、点歌和金币API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
