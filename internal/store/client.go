// Package store implements the asynchronous stash.Store on top of a
// metadata catalog, a payload vault and an optional encryptor.
package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"stash-go/internal/loop"
	"stash-go/internal/metrics"
	"stash-go/internal/retry"
	"stash-go/internal/stash"
)

// PassphraseFunc supplies the passphrase that unlocks the private key.
// It is called at most once per successful unlock.
type PassphraseFunc func() (string, error)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout    time.Duration // per request, including retries
	Retry      retry.Config  // applied to read-only requests only
	Metrics    *metrics.Metrics
	Logger     stash.Logger
	Passphrase PassphraseFunc
}

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Client implements stash.Store. Each request runs on its own goroutine and
// completes on the loop.
type Client struct {
	loop    *loop.Loop
	catalog stash.Catalog
	vault   stash.Vault
	enc     stash.Encryptor
	opts    Options

	mu       sync.Mutex
	unlocked stash.DecryptionContext
}

var _ stash.Store = (*Client)(nil)

// NewClient wires a client. enc may be nil, in which case payloads are stored
// as plaintext and encrypted items cannot be read.
func NewClient(l *loop.Loop, catalog stash.Catalog, vault stash.Vault, enc stash.Encryptor, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = stash.NewNopLogger()
	}
	return &Client{loop: l, catalog: catalog, vault: vault, enc: enc, opts: opts}
}

// call runs fn off the loop under the request timeout. Read-only requests
// are retried on transient errors; writes are attempted once.
func call[T any](c *Client, op string, readOnly bool, fn func(ctx context.Context) (T, error)) *loop.Job[T] {
	return loop.Submit(c.loop, func() (T, error) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
		defer cancel()

		cfg := c.opts.Retry
		if !readOnly {
			cfg.MaxAttempts = 1
		}
		v, err := retry.Do(ctx, cfg, fn)
		elapsed := time.Since(start)
		c.opts.Metrics.RecordRequest(op, elapsed, err)
		if err != nil {
			c.opts.Logger.Debug("store request failed", "op", op, "duration", elapsed, "error", err)
		}
		return v, err
	})
}

func (c *Client) ResolveChild(parent stash.Collection, name string) *loop.Job[stash.Handle] {
	return call(c, "resolve_child", true, func(ctx context.Context) (stash.Handle, error) {
		matches, err := c.catalog.Lookup(ctx, parent.ID, name)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, &stash.Error{Kind: stash.NotFound, Name: name}
		case 1:
			return matches[0], nil
		default:
			return nil, &stash.Error{Kind: stash.Ambiguous, Name: name}
		}
	})
}

func (c *Client) FetchBase(coll stash.Collection) *loop.Job[stash.Collection] {
	return call(c, "fetch_base", true, func(ctx context.Context) (stash.Collection, error) {
		return c.catalog.GetCollection(ctx, coll.ID)
	})
}

func (c *Client) FetchChildren(coll stash.Collection) *loop.Job[[]stash.Collection] {
	return call(c, "fetch_children", true, func(ctx context.Context) ([]stash.Collection, error) {
		return c.catalog.ListCollections(ctx, coll.ID)
	})
}

func (c *Client) FetchItems(coll stash.Collection) *loop.Job[[]stash.Item] {
	return call(c, "fetch_items", true, func(ctx context.Context) ([]stash.Item, error) {
		return c.catalog.ListItems(ctx, coll.ID)
	})
}

func (c *Client) FetchTags(it stash.Item) *loop.Job[[]stash.Tag] {
	return call(c, "fetch_tags", true, func(ctx context.Context) ([]stash.Tag, error) {
		return c.catalog.ListTags(ctx, it.ID)
	})
}

// FetchPayload reads the stored payload and, for encrypted items, decrypts it.
// The key is unlocked on the first encrypted read.
func (c *Client) FetchPayload(it stash.Item) *loop.Job[[]byte] {
	return call(c, "fetch_payload", true, func(ctx context.Context) ([]byte, error) {
		var stored bytes.Buffer
		if err := c.vault.GetContent(ctx, vaultKey(it.Checksum, it.Encrypted), &stored); err != nil {
			return nil, fmt.Errorf("fetching payload of %s: %w", it.Name, err)
		}
		c.opts.Metrics.RecordDownload(int64(stored.Len()))
		if !it.Encrypted {
			return stored.Bytes(), nil
		}

		dc, err := c.decryption()
		if err != nil {
			return nil, err
		}
		var plain bytes.Buffer
		if err := dc.Decrypt(&stored, &plain); err != nil {
			return nil, fmt.Errorf("decrypting %s: %w", it.Name, err)
		}
		return plain.Bytes(), nil
	})
}

// CreateItem stores the payload (encrypted when an encryptor is configured)
// and records the item. Payloads already in the vault are not uploaded again.
func (c *Client) CreateItem(parent stash.Collection, it stash.NewItem) *loop.Job[stash.Item] {
	return call(c, "create_item", false, func(ctx context.Context) (stash.Item, error) {
		if err := stash.ValidateName(it.Name); err != nil {
			return stash.Item{}, err
		}

		sum := sha256.Sum256(it.Payload)
		checksum := hex.EncodeToString(sum[:])
		encrypted := c.enc != nil && c.enc.IsConfigured()
		key := vaultKey(checksum, encrypted)

		has, err := c.vault.HasContent(ctx, key)
		if err != nil {
			return stash.Item{}, fmt.Errorf("checking vault: %w", err)
		}
		if !has {
			stored := it.Payload
			if encrypted {
				var buf bytes.Buffer
				if err := c.enc.Encrypt(bytes.NewReader(it.Payload), &buf); err != nil {
					return stash.Item{}, fmt.Errorf("encrypting %s: %w", it.Name, err)
				}
				stored = buf.Bytes()
			}
			if err := c.vault.PutContent(ctx, key, bytes.NewReader(stored), int64(len(stored))); err != nil {
				return stash.Item{}, fmt.Errorf("storing payload of %s: %w", it.Name, err)
			}
			c.opts.Metrics.RecordUpload(int64(len(stored)))
		}

		return c.catalog.CreateItem(ctx, stash.Item{
			CollectionID: parent.ID,
			Name:         it.Name,
			MimeType:     it.MimeType,
			Size:         int64(len(it.Payload)),
			Checksum:     checksum,
			Encrypted:    encrypted,
		})
	})
}

func (c *Client) CreateCollection(parent stash.Collection, name string) *loop.Job[stash.Collection] {
	return call(c, "create_collection", false, func(ctx context.Context) (stash.Collection, error) {
		return c.catalog.CreateCollection(ctx, parent.ID, name)
	})
}

func (c *Client) TagItem(it stash.Item, tag string) *loop.Job[stash.Tag] {
	return call(c, "tag_item", false, func(ctx context.Context) (stash.Tag, error) {
		return c.catalog.TagItem(ctx, it.ID, tag)
	})
}

func (c *Client) Move(h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
	return call(c, "move", false, func(ctx context.Context) (stash.Handle, error) {
		switch v := h.(type) {
		case stash.Collection:
			return handleOf(c.catalog.MoveCollection(ctx, v.ID, dest.ID))
		case stash.Item:
			return handleOf(c.catalog.MoveItem(ctx, v.ID, dest.ID))
		default:
			return nil, stash.Errorf(stash.InvalidUsage, "cannot move %T", h)
		}
	})
}

// Copy duplicates catalog entries only; copies share the source payloads.
func (c *Client) Copy(h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
	return call(c, "copy", false, func(ctx context.Context) (stash.Handle, error) {
		switch v := h.(type) {
		case stash.Collection:
			return handleOf(c.catalog.CopyCollection(ctx, v.ID, dest.ID))
		case stash.Item:
			return handleOf(c.catalog.CopyItem(ctx, v.ID, dest.ID))
		default:
			return nil, stash.Errorf(stash.InvalidUsage, "cannot copy %T", h)
		}
	})
}

// decryption returns the session's decryption context, unlocking the key on
// first use. A failed unlock is not cached so the next read asks again.
func (c *Client) decryption() (stash.DecryptionContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unlocked != nil {
		return c.unlocked, nil
	}
	if c.enc == nil {
		return nil, errors.New("item is encrypted but no encryptor is configured")
	}
	if c.opts.Passphrase == nil {
		return nil, errors.New("item is encrypted but no passphrase is available")
	}
	pass, err := c.opts.Passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := c.enc.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	c.unlocked = dc
	return dc, nil
}

// vaultKey separates encrypted from plaintext copies of the same content.
func vaultKey(checksum string, encrypted bool) string {
	if encrypted {
		return checksum + ".enc"
	}
	return checksum
}

func handleOf[T stash.Handle](v T, err error) (stash.Handle, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
