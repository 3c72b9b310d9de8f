package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gradebook/config"
	"gradebook/database"
	"gradebook/logger"
	"gradebook/web"
	"gradebook/web/service"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Notice:
		logger.InitLogger(logging.NOTICE)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}

	if err := database.InitDB(config.GetDBPath()); err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			logger.Warning("close db err:", err)
		}
		logger.CloseLogger()
	}()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func showSetting() {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}
	defer database.CloseDB()

	var count int64
	if err := database.GetDB().Table("users").Count(&count).Error; err != nil {
		fmt.Println("read users failed:", err)
		return
	}
	fmt.Println("current settings as follows:")
	fmt.Println("port:", config.GetPort())
	fmt.Println("db path:", config.GetDBPath())
	fmt.Println("accounts:", count)
}

func createAccount(username string, password string) {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}
	defer database.CloseDB()

	userService := service.UserService{}
	user, err := userService.Register(username, password)
	if err != nil {
		fmt.Println("create account failed:", err)
		return
	}
	fmt.Println("account created:", user.Username)
}

func showAudit(limit int) {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		fmt.Println(err)
		return
	}
	defer database.CloseDB()

	auditService := service.AuditService{}
	logs, err := auditService.GetAuditLogs(limit)
	if err != nil {
		fmt.Println("read audit log failed:", err)
		return
	}
	for _, entry := range logs {
		fmt.Printf("%s %s %s %s/%d %s\n",
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Username, entry.Action, entry.Resource, entry.ResourceId, entry.Details)
	}
}

func resetDB() {
	dbPath := config.GetDBPath()
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		fmt.Println("remove database failed:", err)
		return
	}
	if err := database.InitDB(dbPath); err != nil {
		fmt.Println(err)
		return
	}
	defer database.CloseDB()
	fmt.Println("database reset, admin login seeded")
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}
	if err := config.LoadFile(); err != nil {
		log.Fatal("invalid gradebook.toml:", err)
	}

	rootCmd := &cobra.Command{
		Use: "gradebook",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	settingCmd := &cobra.Command{
		Use:   "setting",
		Short: "Inspect or change settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Create a staff account",
		Run: func(cmd *cobra.Command, args []string) {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			createAccount(username, password)
		},
	}
	accountCmd.Flags().String("username", "", "account username")
	accountCmd.Flags().String("password", "", "account password")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the database",
		Run: func(cmd *cobra.Command, args []string) {
			resetDB()
		},
	}

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			showAudit(limit)
		},
	}
	auditCmd.Flags().Int("limit", 20, "number of entries to show")

	settingCmd.AddCommand(showCmd, accountCmd, resetCmd, auditCmd)
	rootCmd.AddCommand(runCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("execute failed:", err)
		os.Exit(1)
	}
}
