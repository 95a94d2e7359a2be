package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"solsettle/pkg/config"
)

var (
	serviceURL = flag.String("url", "", "Settlement service base URL (reads SETTLE_SERVICE_URL from .env if not specified)")
	action     = flag.String("action", "", "Action: init | mint | burn | swap | collect | pool | pools | account | position | health (required)")

	mintA       = flag.String("mint-a", "", "Token A mint address (init)")
	mintB       = flag.String("mint-b", "", "Token B mint address (init)")
	feeRateBps  = flag.Uint("fee", 30, "Fee rate in basis points (init)")
	tickSpacing = flag.Uint("spacing", 60, "Tick spacing (init)")
	price       = flag.String("price", "", "Initial decimal price of B per A (init)")
	sqrtPrice   = flag.String("sqrt-price", "", "Initial Q64.64 sqrt price, overrides -price (init)")

	poolAddr  = flag.String("pool", "", "Pool address (mint/burn/swap/collect/pool/position)")
	owner     = flag.String("owner", "", "Position owner address (mint/burn/collect)")
	tickLower = flag.Int("lower", 0, "Lower tick boundary (mint/burn)")
	tickUpper = flag.Int("upper", 0, "Upper tick boundary (mint/burn)")
	liquidity = flag.String("liquidity", "", "Liquidity amount (mint/burn)")

	aToB       = flag.Bool("a-to-b", true, "Swap direction: true sells token A (swap)")
	exactIn    = flag.Bool("exact-in", true, "Fix the input amount; false fixes the output (swap)")
	amount     = flag.String("amount", "", "Swap amount in smallest units (swap)")
	priceLimit = flag.String("limit", "", "Optional Q64.64 sqrt price limit (swap)")

	position = flag.String("position", "", "Position address (collect/position)")
	timeout  = flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	flag.Parse()

	if *action == "" {
		fmt.Fprintln(os.Stderr, "Error: Missing required -action")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExamples:")
		fmt.Fprintln(os.Stderr, "  settle -action init -mint-a So111... -mint-b EPjFW... -fee 30 -spacing 60 -price 1.0")
		fmt.Fprintln(os.Stderr, "  settle -action mint -pool <pool> -owner <owner> -lower -600 -upper 600 -liquidity 1000000000")
		fmt.Fprintln(os.Stderr, "  settle -action swap -pool <pool> -a-to-b -amount 1000000")
		fmt.Fprintln(os.Stderr, "  settle -action collect -pool <pool> -position <position> -owner <owner>")
		os.Exit(1)
	}

	base := strings.TrimSuffix(*serviceURL, "/")
	if base == "" {
		base = strings.TrimSuffix(os.Getenv("SETTLE_SERVICE_URL"), "/")
	}
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: *timeout}

	var (
		status int
		body   []byte
		err    error
	)
	switch *action {
	case "init":
		requireFlags("init", map[string]string{"-mint-a": *mintA, "-mint-b": *mintB})
		if *price == "" && *sqrtPrice == "" {
			fatalError("init requires -price or -sqrt-price")
		}
		status, body, err = post(client, base+"/pools", map[string]interface{}{
			"mintA":            *mintA,
			"mintB":            *mintB,
			"feeRateBps":       *feeRateBps,
			"tickSpacing":      *tickSpacing,
			"initialPrice":     *price,
			"initialSqrtPrice": *sqrtPrice,
		})

	case "mint", "burn":
		requireFlags(*action, map[string]string{"-pool": *poolAddr, "-owner": *owner, "-liquidity": *liquidity})
		status, body, err = post(client, base+"/pools/"+*poolAddr+"/"+*action, map[string]interface{}{
			"owner":     *owner,
			"tickLower": *tickLower,
			"tickUpper": *tickUpper,
			"liquidity": *liquidity,
		})

	case "swap":
		requireFlags("swap", map[string]string{"-pool": *poolAddr, "-amount": *amount})
		status, body, err = post(client, base+"/pools/"+*poolAddr+"/swap", map[string]interface{}{
			"aToB":           *aToB,
			"exactIn":        *exactIn,
			"amount":         *amount,
			"sqrtPriceLimit": *priceLimit,
		})

	case "collect":
		requireFlags("collect", map[string]string{"-pool": *poolAddr, "-position": *position, "-owner": *owner})
		status, body, err = post(client, base+"/pools/"+*poolAddr+"/collect", map[string]interface{}{
			"position": *position,
			"owner":    *owner,
		})

	case "pool":
		requireFlags("pool", map[string]string{"-pool": *poolAddr})
		status, body, err = get(client, base+"/pools/"+*poolAddr)

	case "pools":
		status, body, err = get(client, base+"/pools")

	case "account":
		requireFlags("account", map[string]string{"-pool": *poolAddr})
		status, body, err = get(client, base+"/pools/"+*poolAddr+"/account")

	case "position":
		requireFlags("position", map[string]string{"-pool": *poolAddr, "-position": *position})
		status, body, err = get(client, base+"/pools/"+*poolAddr+"/positions/"+*position)

	case "health":
		status, body, err = get(client, base+"/health")

	default:
		fatalError(fmt.Sprintf("unknown action %q", *action))
	}

	if err != nil {
		fatalError(fmt.Sprintf("request failed: %v", err))
	}

	printJSON(body)
	if status >= 400 {
		os.Exit(1)
	}
}

func requireFlags(action string, flags map[string]string) {
	var missing []string
	for name, value := range flags {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		fatalError(fmt.Sprintf("%s requires %s", action, strings.Join(missing, ", ")))
	}
}

func post(client *http.Client, url string, payload map[string]interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func get(client *http.Client, url string) (int, []byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// printJSON re-indents the service response so shell users get readable
// output; anything that is not JSON is printed as-is.
func printJSON(body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(buf.String())
}

func fatalError(msg string) {
	jsonData, _ := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
	fmt.Fprintln(os.Stderr, string(jsonData))
	os.Exit(1)
}
