package config

import (
	"os"
	"strconv"
)

func IsDebug() bool {
	v, err := strconv.ParseBool(os.Getenv("RECALLION_DEBUG"))
	if err != nil {
		return false
	}
	return v
}
