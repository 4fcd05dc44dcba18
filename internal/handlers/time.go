package handlers

import "time"

func realNowUnix() int64 { return time.Now().Unix() }
