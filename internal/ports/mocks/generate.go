//go:generate mockgen -source=../event_source.go      -destination=./mock_event_source.go      -package=mocks
//go:generate mockgen -source=../message_queue.go     -destination=./mock_message_queue.go     -package=mocks
//go:generate mockgen -source=../message_processor.go -destination=./mock_message_processor.go -package=mocks
//go:generate mockgen -source=../message_consumer.go  -destination=./mock_message_consumer.go  -package=mocks
//go:generate mockgen -source=../eviction_monitor.go  -destination=./mock_eviction_monitor.go  -package=mocks

package mocks
