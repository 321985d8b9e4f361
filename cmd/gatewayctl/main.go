// Package main (cmd/gatewayctl) is a command line client for the identity gateway.
//
// Keys are secp256k1 private keys stored hex-encoded, as written by keygen.
// When --issuer-key-file is given, requests carry an association token in
// which the issuer authorizes the signer.
//
//	gatewayctl keygen --key-file=signer.key
//	gatewayctl --hub=https://hub.example.com --key-file=signer.key register
//	gatewayctl --app-key=$APP_KEY tables put notes k1 '{"v":1}'
//	gatewayctl index add --db-dsn=./data/gateway.db --bucket=0xabc... --path=notes.txt --size=42
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/identity-gateway/api/clients"
	"github.com/ruteri/identity-gateway/cmd/flags"
	"github.com/ruteri/identity-gateway/interfaces"
)

var flagServer = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "gateway base URL",
	EnvVars: []string{"GATEWAY_URL"},
}
var flagHub = &cli.StringFlag{
	Name:    "hub",
	Usage:   "hub URL to put in the token, defaults to --server",
	EnvVars: []string{"GATEWAY_HUB_URL"},
}
var flagKeyFile = &cli.StringFlag{
	Name:  "key-file",
	Value: "signer.key",
	Usage: "hex-encoded signer private key",
}
var flagIssuerKeyFile = &cli.StringFlag{
	Name:  "issuer-key-file",
	Usage: "hex-encoded issuer private key, enables delegated tokens",
}
var flagOrigin = &cli.StringFlag{
	Name:  "origin",
	Usage: "Origin header to send on login",
}
var flagTTL = &cli.DurationFlag{
	Name:  "ttl",
	Usage: "token lifetime",
}
var flagAppKey = &cli.StringFlag{
	Name:    "app-key",
	Usage:   "app db shared secret",
	EnvVars: []string{"GATEWAY_APP_KEY"},
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gatewayctl",
		Usage: "Talk to the identity gateway",
		Flags: []cli.Flag{flagServer, flagHub, flagKeyFile, flagIssuerKeyFile, flagOrigin, flagTTL, flagAppKey},
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate a signer key and print its address",
				Action: func(cCtx *cli.Context) error {
					path := cCtx.String(flagKeyFile.Name)
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists", path)
					}

					key, err := crypto.GenerateKey()
					if err != nil {
						return fmt.Errorf("failed to generate key: %w", err)
					}
					if err := crypto.SaveECDSA(path, key); err != nil {
						return err
					}

					fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "print a bearer token",
				Action: func(cCtx *cli.Context) error {
					client, err := userClient(cCtx)
					if err != nil {
						return err
					}
					token, err := client.Token()
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
			userCommand("validate", "check that the token is accepted", (*clients.UserClient).ValidateToken),
			userCommand("login", "log in, registering on first use", (*clients.UserClient).Login),
			userCommand("register", "register the signer", (*clients.UserClient).Register),
			userCommand("unregister", "tear down every connection and delete the user", (*clients.UserClient).Unregister),
			{
				Name:  "gdpr",
				Usage: "print the stored user record",
				Action: func(cCtx *cli.Context) error {
					client, err := userClient(cCtx)
					if err != nil {
						return err
					}
					user, err := client.Gdpr(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(user)
				},
			},
			{
				Name:  "list-files",
				Usage: "print the file index",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "global", Usage: "include every bucket of the user's connections"}},
				Action: func(cCtx *cli.Context) error {
					client, err := userClient(cCtx)
					if err != nil {
						return err
					}
					index, err := client.ListFiles(cCtx.Context, cCtx.Bool("global"))
					if err != nil {
						return err
					}
					return printJSON(index)
				},
			},
			tablesCommand(),
			indexCommand(),
		},
	}
}

func userCommand(name, usage string, call func(*clients.UserClient, context.Context) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(cCtx *cli.Context) error {
			client, err := userClient(cCtx)
			if err != nil {
				return err
			}
			if err := call(client, cCtx.Context); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func tablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "app db operations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list tables",
				Action: func(cCtx *cli.Context) error {
					names, err := tableClient(cCtx).ListTables(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(names)
				},
			},
			{
				Name:      "create",
				Usage:     "create a table",
				ArgsUsage: "<table>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 1)
					if err != nil {
						return err
					}
					return tableClient(cCtx).CreateTable(cCtx.Context, args[0])
				},
			},
			{
				Name:      "drop",
				Usage:     "drop a table and its rows",
				ArgsUsage: "<table>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 1)
					if err != nil {
						return err
					}
					return tableClient(cCtx).DropTable(cCtx.Context, args[0])
				},
			},
			{
				Name:      "rows",
				Usage:     "list the rows of a table",
				ArgsUsage: "<table>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 1)
					if err != nil {
						return err
					}
					rows, err := tableClient(cCtx).ListRows(cCtx.Context, args[0])
					if err != nil {
						return err
					}
					return printJSON(rows)
				},
			},
			{
				Name:      "get",
				Usage:     "print one row",
				ArgsUsage: "<table> <key>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 2)
					if err != nil {
						return err
					}
					value, err := tableClient(cCtx).GetRow(cCtx.Context, args[0], args[1])
					if err != nil {
						return err
					}
					fmt.Println(string(value))
					return nil
				},
			},
			{
				Name:      "put",
				Usage:     "store a JSON value",
				ArgsUsage: "<table> <key> <json>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 3)
					if err != nil {
						return err
					}
					if !json.Valid([]byte(args[2])) {
						return errors.New("value is not valid JSON")
					}
					return tableClient(cCtx).PutRow(cCtx.Context, args[0], args[1], json.RawMessage(args[2]))
				},
			},
			{
				Name:      "delete",
				Usage:     "delete one row",
				ArgsUsage: "<table> <key>",
				Action: func(cCtx *cli.Context) error {
					args, err := requireArgs(cCtx, 2)
					if err != nil {
						return err
					}
					return tableClient(cCtx).DeleteRow(cCtx.Context, args[0], args[1])
				},
			},
		},
	}
}

func indexCommand() *cli.Command {
	bucket := &cli.StringFlag{Name: "bucket", Required: true, Usage: "bucket address the file lives in"}
	path := &cli.StringFlag{Name: "path", Required: true, Usage: "file path inside the bucket"}

	return &cli.Command{
		Name:  "index",
		Usage: "maintain the file index in the registry database",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "record or update a file",
				Flags: []cli.Flag{
					flags.DBDriverFlag, flags.DBDSNFlag, bucket, path,
					&cli.StringFlag{Name: "connection", Usage: "connection id holding the file"},
					&cli.Int64Flag{Name: "size", Usage: "size in bytes"},
					&cli.StringFlag{Name: "content-type", Usage: "media type"},
				},
				Action: func(cCtx *cli.Context) error {
					return withIndexer(cCtx, func(indexer interfaces.FileIndexer) error {
						return indexer.IndexFile(cCtx.Context, interfaces.IndexEntry{
							Bucket:      cCtx.String(bucket.Name),
							Path:        cCtx.String(path.Name),
							Connection:  cCtx.String("connection"),
							Size:        cCtx.Int64("size"),
							ContentType: cCtx.String("content-type"),
						})
					})
				},
			},
			{
				Name:  "remove",
				Usage: "drop a file from the index",
				Flags: []cli.Flag{flags.DBDriverFlag, flags.DBDSNFlag, bucket, path},
				Action: func(cCtx *cli.Context) error {
					return withIndexer(cCtx, func(indexer interfaces.FileIndexer) error {
						return indexer.UnindexFile(cCtx.Context, cCtx.String(bucket.Name), cCtx.String(path.Name))
					})
				},
			},
		},
	}
}

func withIndexer(cCtx *cli.Context, fn func(interfaces.FileIndexer) error) error {
	if cCtx.String(flags.DBDriverFlag.Name) == "memory" {
		return errors.New("the file index needs a persistent database")
	}

	stores, err := flags.OpenStores(cCtx, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		return err
	}
	defer stores.Close()

	indexer, ok := stores.Registry.(interfaces.FileIndexer)
	if !ok {
		return errors.New("registry does not support file indexing")
	}
	return fn(indexer)
}

func userClient(cCtx *cli.Context) (*clients.UserClient, error) {
	signer, err := loadKey(cCtx.String(flagKeyFile.Name))
	if err != nil {
		return nil, err
	}

	var issuer *ecdsa.PrivateKey
	if path := cCtx.String(flagIssuerKeyFile.Name); path != "" {
		if issuer, err = loadKey(path); err != nil {
			return nil, err
		}
	}

	hub := cCtx.String(flagHub.Name)
	if hub == "" {
		hub = cCtx.String(flagServer.Name)
	}

	return &clients.UserClient{
		ServerAddr: cCtx.String(flagServer.Name),
		Hub:        hub,
		Signer:     signer,
		Issuer:     issuer,
		Origin:     cCtx.String(flagOrigin.Name),
		TokenTTL:   cCtx.Duration(flagTTL.Name),
	}, nil
}

func tableClient(cCtx *cli.Context) *clients.TableClient {
	return &clients.TableClient{
		ServerAddr: cCtx.String(flagServer.Name),
		AuthKey:    cCtx.String(flagAppKey.Name),
	}
}

func loadKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("could not load key %s: %w", path, err)
	}
	return key, nil
}

func requireArgs(cCtx *cli.Context, n int) ([]string, error) {
	if cCtx.NArg() != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, cCtx.NArg())
	}
	return cCtx.Args().Slice(), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
