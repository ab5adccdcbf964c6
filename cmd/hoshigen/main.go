/*
Hoshigen compiles a grammar description into a parser artifact and either
serves it over HTTP or drives an interactive "try a source snippet" session
against it.

Usage:

	hoshigen [flags] -g FILE

The flags are:

	-v, --version
		Give the current version of hoshigen and then exit.

	-g, --grammar FILE
		Load the given JSON-encoded grammar-description AST and compile it.
		Required unless --serve is given with an existing --cache to serve
		from.

	-d, --direct
		Force reading directly from stdin instead of going through GNU
		readline where possible, in interactive mode.

	--dump-ic
		Print the optimized intermediate code for the compiled grammar and
		exit, instead of starting an interactive session.

	--serve
		Serve the compiled grammar (or the artifact cache, if no --grammar
		is given) over HTTP instead of starting an interactive session.

	-l, --listen ADDRESS
		Listen on the given address in --serve mode. Defaults to the value
		of environment variable HOSHIGEN_LISTEN_ADDRESS, then to
		"localhost:8080".

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing bearer tokens in --serve mode.
		Defaults to the value of environment variable HOSHIGEN_TOKEN_SECRET.
		If neither is given, a random secret is generated and a CLI token for
		it is printed to stderr at startup.

	-c, --cache FILE
		Use the given sqlite file as the artifact cache. Defaults to the
		value of environment variable HOSHIGEN_CACHE_PATH, then to
		"hoshi-cache.db".

	--config FILE
		Load grammar/severity/listen/cache defaults from the given TOML
		file before applying the flags above.
*/
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/calderwood/hoshi"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/cache"
	"github.com/calderwood/hoshi/internal/config"
	"github.com/calderwood/hoshi/internal/httpapi"
	"github.com/calderwood/hoshi/internal/version"
)

const (
	EnvListen = "HOSHIGEN_LISTEN_ADDRESS"
	EnvSecret = "HOSHIGEN_TOKEN_SECRET"
	EnvCache  = "HOSHIGEN_CACHE_PATH"
)

const (
	ExitSuccess = iota
	ExitInitError
	ExitGrammarError
	ExitRunError
)

var (
	flagVersion    = pflag.BoolP("version", "v", false, "Give the version info and exit")
	flagGrammar    = pflag.StringP("grammar", "g", "", "JSON-encoded grammar-description AST to compile")
	flagDirect     = pflag.BoolP("direct", "d", false, "Force direct stdin reading instead of GNU readline")
	flagDumpIC     = pflag.Bool("dump-ic", false, "Print the compiled grammar's intermediate code and exit")
	flagServe      = pflag.Bool("serve", false, "Serve the compiled grammar over HTTP instead of an interactive session")
	flagListen     = pflag.StringP("listen", "l", "", "Listen on the given address in --serve mode")
	flagSecret     = pflag.StringP("secret", "s", "", "Secret used to sign bearer tokens in --serve mode")
	flagCachePath  = pflag.StringP("cache", "c", "", "sqlite file to use as the artifact cache")
	flagConfigPath = pflag.String("config", "", "TOML file of grammar/severity/listen/cache defaults")
)

func main() {
	returnCode := ExitSuccess
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		}
		os.Exit(returnCode)
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("hoshigen %s\n", version.Current)
		return
	}

	cfg := config.Default()
	if *flagConfigPath != "" {
		loaded, err := config.Load(*flagConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: loading config: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		cfg = loaded
	}

	var gen *hoshi.Generator
	var grammarData []byte
	if *flagGrammar != "" {
		var err error
		gen, grammarData, err = compileGrammarFile(*flagGrammar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitGrammarError
			return
		}
	}

	if *flagDumpIC {
		if gen == nil {
			fmt.Fprintln(os.Stderr, "ERROR: --dump-ic requires --grammar")
			returnCode = ExitInitError
			return
		}
		ic, err := gen.Disassemble()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		fmt.Print(ic)
		return
	}

	cachePath := resolveCachePath(cfg)
	store, err := cache.Open(cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: opening artifact cache %q: %s\n", cachePath, err.Error())
		returnCode = ExitInitError
		return
	}
	defer store.Close()

	if *flagServe {
		if err := runServer(cfg, gen, grammarData, store); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitRunError
		}
		return
	}

	if gen == nil {
		fmt.Fprintln(os.Stderr, "ERROR: interactive mode requires --grammar")
		returnCode = ExitInitError
		return
	}

	repl, err := hoshi.NewREPL(gen, os.Stdin, os.Stdout, *flagDirect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: initializing interactive session: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer repl.Close()

	if err := repl.RunUntilQuit(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
	}
}

// compileGrammarFile reads and unmarshals a JSON-encoded grammar-description
// ast.Node from path, then runs it through a fresh Generator. The raw file
// bytes are returned alongside it so callers can derive a cache key from the
// grammar's actual content rather than its file path.
func compileGrammarFile(path string) (*hoshi.Generator, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read grammar file: %w", err)
	}

	var root ast.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("parse grammar JSON: %w", err)
	}

	gen := hoshi.New()
	sink, err := gen.Generate(&root)
	if err != nil {
		return nil, nil, err
	}
	if sink.HasErrors() {
		for _, msg := range sink.ErrorMessages(80) {
			fmt.Fprintln(os.Stderr, msg)
		}
		return nil, nil, fmt.Errorf("grammar has errors, refusing to compile")
	}
	return gen, data, nil
}

func resolveCachePath(cfg config.Config) string {
	if pflag.Lookup("cache").Changed {
		return *flagCachePath
	}
	if env := os.Getenv(EnvCache); env != "" {
		return env
	}
	return cfg.CachePath
}

func resolveListenAddr(cfg config.Config) string {
	if pflag.Lookup("listen").Changed {
		return *flagListen
	}
	if env := os.Getenv(EnvListen); env != "" {
		return env
	}
	return cfg.Listen
}

func resolveSecret() []byte {
	if pflag.Lookup("secret").Changed {
		return []byte(*flagSecret)
	}
	if env := os.Getenv(EnvSecret); env != "" {
		return []byte(env)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("FATAL could not generate token secret: %s", err.Error())
	}
	log.Printf("WARN  using generated token secret; all tokens issued will become invalid at shutdown")
	return secret
}

// runServer compiles gen (if given) into the cache, then serves every
// cached artifact over HTTP until the process is killed.
func runServer(cfg config.Config, gen *hoshi.Generator, grammarData []byte, store *cache.Store) error {
	secret := resolveSecret()
	addr := resolveListenAddr(cfg)

	if gen != nil {
		blob, err := gen.Encode()
		if err != nil {
			return err
		}
		entry, err := store.Put(context.Background(), cache.KeyOf(string(grammarData)), blob)
		if err != nil {
			return fmt.Errorf("caching compiled grammar: %w", err)
		}
		log.Printf("INFO  compiled grammar cached as %s", entry.ID.String())
	}

	tok, err := httpapi.IssueToken(secret, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("issuing CLI bearer token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "bearer token for write endpoints: %s\n", tok)

	api := &httpapi.API{Store: store, Secret: secret, UnauthDelay: 200 * time.Millisecond}
	log.Printf("INFO  hoshigen %s listening on %s", version.Current, addr)
	return http.ListenAndServe(addr, api.Router())
}
