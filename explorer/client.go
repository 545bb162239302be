// Package explorer is a throttled client for block-explorer style log
// APIs (etherscan family). Only the getLogs surface is implemented;
// it exists to let the discovery scanner replay factory creation
// events without a full archive node.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/time/rate"
	"golang.org/x/xerrors"
)

var log = logging.Logger("clmctl/explorer")

const (
	// keyedInterval is the minimum gap between requests when a real API
	// key is configured.
	keyedInterval = 200 * time.Millisecond
	// keylessInterval is the fallback pace for anonymous access; the
	// etherscan family hard-throttles keyless clients.
	keylessInterval = 6 * time.Second

	cacheSize = 128
)

// Log is one decoded log entry from the explorer API.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

type Client struct {
	apiURL string
	apiKey string

	http    *http.Client
	limiter *rate.Limiter
	// reqMu caps in-flight requests at one; explorers throttle by
	// concurrency as well as by rate.
	reqMu sync.Mutex

	cache *lru.Cache[string, []Log]
}

// NewClient builds a client for one explorer endpoint. apiKey may be
// empty; requests are then paced at the much slower keyless rate.
func NewClient(apiURL, apiKey string) *Client {
	interval := keyedInterval
	if apiKey == "" {
		interval = keylessInterval
		log.Warnw("no explorer api key configured, using slow request rate", "url", apiURL, "interval", interval)
	}
	cache, _ := lru.New[string, []Log](cacheSize)
	return &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		cache:   cache,
	}
}

type logsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		Address string   `json:"address"`
		Topics  []string `json:"topics"`
		Data    string   `json:"data"`
	} `json:"result"`
}

// GetLogs fetches every log emitted by address with the given topic0.
// Responses are cached per address+topic for the process lifetime of
// the cache, so repeated scans of one factory hit the API once.
func (c *Client) GetLogs(ctx context.Context, address common.Address, topic0 common.Hash) ([]Log, error) {
	key := address.Hex() + "/" + topic0.Hex()
	if logs, ok := c.cache.Get(key); ok {
		return logs, nil
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("module", "logs")
	q.Set("action", "getLogs")
	q.Set("address", address.Hex())
	q.Set("topic0", topic0.Hex())
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("explorer getLogs: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("explorer getLogs: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("explorer getLogs: read body: %w", err)
	}

	var parsed logsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, xerrors.Errorf("explorer getLogs: parse body: %w", err)
	}
	// status 0 with message "No records found" is an empty result, not
	// an error.
	if parsed.Status != "1" && parsed.Message != "No records found" {
		return nil, xerrors.Errorf("explorer getLogs: api error: %s", parsed.Message)
	}

	logs := make([]Log, 0, len(parsed.Result))
	for i, entry := range parsed.Result {
		data, err := hexutil.Decode(entry.Data)
		if err != nil {
			return nil, xerrors.Errorf("explorer getLogs: bad data in log %d: %w", i, err)
		}
		l := Log{
			Address: common.HexToAddress(entry.Address),
			Data:    data,
		}
		for _, t := range entry.Topics {
			l.Topics = append(l.Topics, common.HexToHash(t))
		}
		logs = append(logs, l)
	}

	c.cache.Add(key, logs)
	log.Debugw("fetched logs", "address", address.Hex(), "topic", topic0.Hex(), "count", len(logs))
	return logs, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("explorer(%s)", c.apiURL)
}
