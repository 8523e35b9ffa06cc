// Package config provides configuration parsing for the stackkit CLI.
//
// The configuration is stored in stackkit.json next to where the CLI runs.
// This package handles loading, saving, defaults and validation.
//
// # Configuration File Structure
//
//	{
//	  "addr": "localhost:7070",
//	  "metricsPath": "/metrics",
//	  "logLevel": "debug",
//	  "overlay": {
//	    "duplicateBehavior": "replace",
//	    "limit": "none",
//	    "modalExitDelay": "250ms",
//	    "preload": true
//	  },
//	  "persist": {
//	    "kind": "redis",
//	    "redisAddr": "localhost:6379",
//	    "ttl": "12h"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Addr:", cfg.Addr)
package config
