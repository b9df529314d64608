package cmd

import (
	"fmt"
	"log"

	"RoomFM/config"
	"RoomFM/db"
	"RoomFM/model"
	"RoomFM/repository"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin <username>",
	Short: "授予用户管理员权限",
	Long:  `把指定用户的角色设为admin。首个管理员由此创建，之后可通过API管理。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := config.Load()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接到数据库: %v", err)
		}
		defer db.CloseDB()

		repo := repository.NewMySQLUserRepository(db.DB)
		user, err := repo.GetUserByUsername(username)
		if err != nil {
			log.Fatalf("查询用户失败: %v", err)
		}
		if user == nil {
			log.Fatalf("用户不存在: %s", username)
		}

		if err := repo.UpdateRole(user.ID, model.RoleAdmin); err != nil {
			log.Fatalf("更新角色失败: %v", err)
		}
		fmt.Printf("用户 %s 已设为管理员\n", username)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
}
