package mocks

//go:generate mockgen -destination=./mock_repository.go -package=mocks github.com/LurkingFox/Tradeworth-sub000/internal/persistence Repository
//go:generate mockgen -destination=./mock_refresher.go -package=mocks github.com/LurkingFox/Tradeworth-sub000/internal/importer Refresher
