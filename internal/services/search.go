package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/dev-murchi/bookstore-backend-sub000/internal/database"
	"github.com/dev-murchi/bookstore-backend-sub000/internal/models"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const booksIndex = "books"

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// IndexBook indexe un livre du catalogue. Best-effort : une panne
// Elastic ne bloque jamais le reste du service.
func IndexBook(b models.Book) {
	if database.ElasticClient == nil {
		log.Println("⚠️ Elastic non initialisé, impossible d'indexer:", b.Title)
		return
	}

	data, _ := json.Marshal(b)
	req := esapi.IndexRequest{
		Index:      booksIndex,
		DocumentID: b.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), database.ElasticClient)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", b.Title, res.String())
	}
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// SearchBooks recherche par titre, auteur ou description.
func SearchBooks(query string) ([]map[string]interface{}, error) {
	if database.ElasticClient == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title", "author", "description"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{booksIndex},
		Body:  &buf,
	}
	res, err := req.Do(context.Background(), database.ElasticClient)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.New("index non trouvé ou vide")
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage réponse: %v", err)
	}

	var results []map[string]interface{}
	if hits, ok := r["hits"].(map[string]interface{}); ok {
		if list, ok := hits["hits"].([]interface{}); ok {
			for _, h := range list {
				if hit, ok := h.(map[string]interface{}); ok {
					if src, ok := hit["_source"].(map[string]interface{}); ok {
						results = append(results, src)
					}
				}
			}
		}
	}
	return results, nil
}
