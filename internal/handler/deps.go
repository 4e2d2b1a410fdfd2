package handler

import (
	"vaaniarc/internal/app/hub"
	"vaaniarc/internal/app/storage"
	"vaaniarc/internal/app/store"
	"vaaniarc/internal/configs"
)

type AppDeps struct {
	Hub            *hub.Hub
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Store          *store.Store
}
