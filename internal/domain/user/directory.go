package user

import (
	"context"
	"fmt"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
)

var profilePaths = map[refresolver.Kind]string{
	refresolver.KindPatient:    "/patients/%d",
	refresolver.KindMedecin:    "/medecins/%d",
	refresolver.KindInfirmier:  "/infirmiers/%d",
	refresolver.KindMagasinier: "/magasiniers/%d",
}

// Directory resolves person references from the role sub-entity endpoints.
type Directory struct {
	client *apiclient.Client
}

func NewDirectory(client *apiclient.Client) *Directory {
	return &Directory{client: client}
}

// Kinds lists the reference kinds the directory serves.
func (d *Directory) Kinds() []refresolver.Kind {
	return []refresolver.Kind{refresolver.KindPatient, refresolver.KindMedecin, refresolver.KindInfirmier, refresolver.KindMagasinier}
}

func (d *Directory) FetchReference(ctx context.Context, kind refresolver.Kind, id int64) (refresolver.Reference, error) {
	path, ok := profilePaths[kind]
	if !ok {
		return refresolver.Reference{}, fmt.Errorf("directory cannot resolve %s", kind)
	}
	p, err := apiclient.GetItem[Profile](ctx, d.client, fmt.Sprintf(path, id))
	if err != nil {
		return refresolver.Reference{}, err
	}
	return profileReference(p), nil
}

func profileReference(p Profile) refresolver.Reference {
	ref := refresolver.Reference{Code: p.CIN}
	if p.User != nil {
		ref.Name = p.User.FullName()
		if ref.Code == "" {
			ref.Code = p.User.CIN
		}
	}
	return ref
}
