/*
Package clients provides Go clients for the identity gateway.

UserClient mints a fresh signed token for every request, optionally carrying
an association token from a delegating issuer. TableClient authenticates app
db requests with the shared secret.

# Example Usage

	signer, _ := crypto.HexToECDSA("your-private-key-hex")
	client := &clients.UserClient{
	    ServerAddr: "https://gateway.example.com",
	    Hub:        "https://gateway.example.com",
	    Signer:     signer,
	}

	if err := client.Register(ctx); err != nil {
	    // ...
	}

	index, err := client.ListFiles(ctx, true)
*/
package clients
