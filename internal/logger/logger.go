// Package logger cria o zap.Logger usado por todos os binários.
package logger

import "go.uber.org/zap"

// New devolve um logger de produção (JSON, info+) ou de desenvolvimento.
func New(env string) *zap.Logger {
	if env == "production" {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}
