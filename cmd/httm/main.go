package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/httm-go/httm/internal/config"
	"github.com/httm-go/httm/internal/i18n"
)

func main() {
	i18n.InitI18nDomain(config.TEXTDOMAIN)

	rootCmd := Cmd()
	installCompletionCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		log.SetFormatter(&log.TextFormatter{
			DisableLevelTruncation: true,
			DisableTimestamp:       true,
		})
		log.Error(err)
		os.Exit(2)
	}
	if err := Error(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
