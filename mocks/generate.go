package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/baiguoname/qust-sub001/internal/live Broker
//go:generate mockgen -destination=./mock_ta.go -package=mocks github.com/baiguoname/qust-sub001/internal/indicator Ta
