// Package config provides configuration parsing for blade applications.
//
// The configuration is stored in blade.json (or blade.yaml) at the project
// root. It names the packages that routes, interceptors and components are
// discovered from, plus the serving options used by pkg/server.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "basePackage": "example.com/shop/...",
//	  "routes": ["example.com/shop/admin/..."],
//	  "interceptors": ["example.com/shop/filters"],
//	  "ioc": ["example.com/shop/service/..."],
//	  "source": ".",
//	  "manifest": "blade.manifest.json",
//	  "output": "internal/bladegen/types.go",
//	  "server": {
//	    "address": ":9000",
//	    "shutdownTimeout": "10s",
//	    "metricsPath": "/metrics"
//	  }
//	}
//
// A package ending in "/..." is scanned recursively. The basePackage expands
// to "<base>/route" and "<base>/interceptor".
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Server.Address)
package config
