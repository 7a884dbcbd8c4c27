package stock

// Produit is a stocked product.
type Produit struct {
	ID          int64   `json:"id"`
	Nom         string  `json:"nom"`
	Description string  `json:"description,omitempty"`
	Categorie   string  `json:"categorie,omitempty"`
	Quantite    int     `json:"quantite"`
	SeuilAlerte int     `json:"seuil_alerte,omitempty"`
	PrixUnit    float64 `json:"prix_unitaire,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

func (p Produit) Key() int64 { return p.ID }

// Low reports whether the stock is at or under its alert threshold.
func (p Produit) Low() bool {
	return p.SeuilAlerte > 0 && p.Quantite <= p.SeuilAlerte
}

// Livraison is a delivery received by a magasinier.
type Livraison struct {
	ID            int64  `json:"id"`
	MagasinierID  int64  `json:"id_magasinier"`
	Fournisseur   string `json:"fournisseur"`
	DateLivraison string `json:"date_livraison"`
	Reference     string `json:"reference,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func (l Livraison) Key() int64 { return l.ID }

// Ligne is one product line of a delivery.
type Ligne struct {
	ID          int64 `json:"id"`
	LivraisonID int64 `json:"id_livraison"`
	ProduitID   int64 `json:"id_produit"`
	Quantite    int   `json:"quantite"`
}

func (l Ligne) Key() int64 { return l.ID }

type ProduitRequest struct {
	Nom         string  `json:"nom" validate:"required,max=150"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Categorie   string  `json:"categorie,omitempty" validate:"omitempty,max=100"`
	Quantite    int     `json:"quantite" validate:"gte=0"`
	SeuilAlerte int     `json:"seuil_alerte,omitempty" validate:"gte=0"`
	PrixUnit    float64 `json:"prix_unitaire,omitempty" validate:"gte=0"`
}

type LivraisonRequest struct {
	MagasinierID  int64  `json:"id_magasinier" validate:"required,gt=0"`
	Fournisseur   string `json:"fournisseur" validate:"required,max=150"`
	DateLivraison string `json:"date_livraison" validate:"required,date"`
	Reference     string `json:"reference,omitempty" validate:"omitempty,max=100"`
}

type LigneRequest struct {
	LivraisonID int64 `json:"id_livraison" validate:"required,gt=0"`
	ProduitID   int64 `json:"id_produit" validate:"required,gt=0"`
	Quantite    int   `json:"quantite" validate:"required,gt=0"`
}
