// Package main (cmd/gateway) runs the identity gateway server.
//
// The server validates signed bearer tokens, keeps a registry of users keyed by
// signer address, and provisions a storage connection for every auto-register
// driver listed in the driver catalog. It also serves the app db API guarded by
// a shared secret.
//
// Example usage:
//
//	gateway --hub-url=https://hub.example.com \
//	    --trusted-origin=https://app.example.com \
//	    --drivers-config=./drivers.yaml \
//	    --db-driver=sqlite --db-dsn=./data/gateway.db \
//	    --app-key=$APP_KEY
//
// Example drivers.yaml:
//
//	drivers:
//	  - id: local
//	    name: Local disk
//	    auto_register: true
//	    uri: file:///var/lib/gateway/files
//	  - id: s3
//	    name: Object storage
//	    auto_register: true
//	    uri: s3://${S3_KEY}:${S3_SECRET}@my-bucket/users/?region=eu-west-1
package main
