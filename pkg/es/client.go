// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"postcraft-go/internal/config"
	"postcraft-go/pkg/log"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// PostDocument 是生成历史在索引中的文档结构。
type PostDocument struct {
	PostID          uint      `json:"post_id"`
	UserID          uint      `json:"user_id"`
	Platform        string    `json:"platform"`
	Content         string    `json:"content"`
	Hashtags        []string  `json:"hashtags"`
	EngagementScore int       `json:"engagement_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// SearchHit 是一条搜索结果。
type SearchHit struct {
	PostDocument
	Score float64 `json:"score"`
}

// InitES 初始化 Elasticsearch 客户端并确保索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := `{
		"mappings": {
			"properties": {
				"post_id": { "type": "long" },
				"user_id": { "type": "long" },
				"platform": { "type": "keyword" },
				"content": { "type": "text", "analyzer": "english" },
				"hashtags": { "type": "keyword", "normalizer": "lowercase" },
				"engagement_score": { "type": "integer" },
				"created_at": { "type": "date" }
			}
		},
		"settings": {
			"analysis": {
				"normalizer": {
					"lowercase": { "type": "custom", "filter": ["lowercase"] }
				}
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// PostIndex 对生成历史索引进行读写。
type PostIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewPostIndex 创建一个 PostIndex，client 通常是 ESClient。
func NewPostIndex(client *elasticsearch.Client, indexName string) *PostIndex {
	return &PostIndex{client: client, indexName: indexName}
}

// IndexPost 写入或覆盖一篇生成内容。
func (p *PostIndex) IndexPost(ctx context.Context, doc PostDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      p.indexName,
		DocumentID: strconv.FormatUint(uint64(doc.PostID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index post")
	}
	return nil
}

// SearchPosts 在某个用户的历史中做全文检索，正文与话题标签都参与匹配。
func (p *PostIndex) SearchPosts(ctx context.Context, userID uint, query string, size int) ([]SearchHit, error) {
	if size <= 0 {
		size = 10
	}
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"content", "hashtags^2"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_id": userID},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.indexName),
		p.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64      `json:"_score"`
				Source PostDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	hits := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, SearchHit{PostDocument: h.Source, Score: h.Score})
	}
	return hits, nil
}
