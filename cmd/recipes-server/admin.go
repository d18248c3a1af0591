package main

import (
	"net/http"
	"recipes-backend/internal/admin"
	"recipes-backend/lib/serviceutil"

	"connectrpc.com/connect"
)

type ServerConfig struct {
	Port int `json:"port"`
	// AccessToken is required as a bearer token by the admin api when set.
	AccessToken string `json:"access_token"`
	// Schedule is a cron spec for ingestion runs, empty disables scheduling.
	Schedule string `json:"schedule"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port: 8000,
	}
}

func InitAdmin(mux *http.ServeMux, cfg ServerConfig, service *admin.Service) {
	mux.Handle(admin.NewHandler(
		service,
		connect.WithInterceptors(
			serviceutil.NewConnectOtelInterceptor(),
			serviceutil.VerifyAccessTokenInterceptor(cfg.AccessToken),
		),
	))
}
