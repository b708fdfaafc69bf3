// Package config provides configuration parsing for the gatewire CLI.
//
// The configuration is stored in gatewire.json at the project root.
// Every value can also come from a GATEWIRE_* environment variable,
// which takes precedence over the file; the token usually does.
//
// # Configuration File Structure
//
//	{
//	  "intents": 4609,
//	  "shards": 0,
//	  "presence": {
//	    "status": "online",
//	    "activity": "with gateways"
//	  },
//	  "debug": {
//	    "enabled": true,
//	    "addr": "127.0.0.1:6060"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Resolve(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Shards:", cfg.Shards)
package config
