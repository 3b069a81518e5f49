package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// translate はドライバのエラーをドメインのセンチネルエラーへ読み替える。
// duplicate には一意制約違反時に返すエラーを渡す。
func translate(err error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case duplicate != nil && mongo.IsDuplicateKeyError(err):
		return duplicate
	default:
		return err
	}
}
