package nimbus

import "github.com/rs/zerolog"

func init() {
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"
	zerolog.ErrorFieldName = "error"
}
