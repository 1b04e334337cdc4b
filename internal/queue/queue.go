package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// File de jobs Redis (liste + BRPOP), livraison at-least-once. Un job
// dont le handler retourne une erreur est remis en file avec un compteur
// de tentatives ; au-delà de maxAttempts il est abandonné et journalisé.
const (
	maxAttempts  = 5
	retryBackoff = 10 * time.Second
	popTimeout   = 5 * time.Second
)

type Job struct {
	ID       string          `json:"id"`
	Attempts int             `json:"attempts"`
	Payload  json.RawMessage `json:"payload"`
}

type Queue struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, name string) *Queue {
	return &Queue{client: client, key: "queue:" + name}
}

// Enqueue sérialise la charge utile et la pousse en tête de liste.
func (q *Queue) Enqueue(payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.push(Job{ID: uuid.NewString(), Payload: raw})
}

func (q *Queue) push(job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(context.Background(), q.key, data).Err()
}

// Consume boucle jusqu'à annulation du contexte. Le handler décide du
// sort du job : nil → acquitté ; erreur → nouvelle tentative différée.
func (q *Queue) Consume(ctx context.Context, handler func(payload json.RawMessage) error) {
	log.Printf("👷 Worker démarré sur %s", q.key)

	for {
		select {
		case <-ctx.Done():
			log.Printf("👷 Worker arrêté sur %s", q.key)
			return
		default:
		}

		res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("⚠️ BRPOP sur %s: %v", q.key, err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Printf("⚠️ Job illisible sur %s, abandonné: %v", q.key, err)
			continue
		}

		if err := handler(job.Payload); err != nil {
			q.retry(job, err)
		}
	}
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempts++
	if job.Attempts >= maxAttempts {
		log.Printf("❌ Job %s abandonné après %d tentatives: %v", job.ID, job.Attempts, cause)
		return
	}

	log.Printf("🔁 Job %s remis en file (tentative %d): %v", job.ID, job.Attempts, cause)
	go func(j Job) {
		time.Sleep(retryBackoff * time.Duration(j.Attempts))
		if err := q.push(j); err != nil {
			log.Printf("❌ Remise en file du job %s impossible: %v", j.ID, err)
		}
	}(job)
}
