package conf

import (
	"flag"
	"time"
)

func msToDuration(ms uint) time.Duration  { return time.Duration(ms) * time.Millisecond }
func secToDuration(s uint) time.Duration  { return time.Duration(s) * time.Second }
func flagsParsed() bool                  { return flag.Parsed() }
func flagParse()                         { flag.Parse() }
