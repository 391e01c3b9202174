package mocks

//go:generate mockgen -source=../queue.go -destination=mock_reader.go -package=mocks
