package record

import "time"

// 各实体的结构化视图，通过 Record.Scan 填充，主键和外键统一为字符串

type User struct {
	ID        string    `rdb:"id"`
	Name      string    `rdb:"name"`
	Email     string    `rdb:"email"`
	Role      string    `rdb:"role"`
	Location  string    `rdb:"location"`
	CreatedAt time.Time `rdb:"created_at"`
	Rating    *float64  `rdb:"rating"`
}

type Contribution struct {
	ID        string    `rdb:"id"`
	Name      string    `rdb:"name"`
	CreatedBy string    `rdb:"created_by"`
	StateID   string    `rdb:"state_id"`
	MealType  string    `rdb:"meal_type"`
	Status    string    `rdb:"status"`
	CreatedAt time.Time `rdb:"created_at"`
}

type State struct {
	ID   string `rdb:"id"`
	Name string `rdb:"name"`
}

type Farmer struct {
	ID             string `rdb:"id"`
	UserID         string `rdb:"user_id"`
	Location       string `rdb:"location"`
	Certifications any    `rdb:"certifications"`
	ContactInfo    any    `rdb:"contact_info"`
}

type Product struct {
	ID       string  `rdb:"id"`
	FarmerID string  `rdb:"farmer_id"`
	Name     string  `rdb:"name"`
	Price    float64 `rdb:"price"`
	Stock    int64   `rdb:"stock"`
}

type Order struct {
	ID            string    `rdb:"id"`
	UserID        string    `rdb:"user_id"`
	TotalAmount   float64   `rdb:"total_amount"`
	Status        string    `rdb:"status"`
	PaymentMethod string    `rdb:"payment_method"`
	CreatedAt     time.Time `rdb:"created_at"`
}

type OrderItem struct {
	OrderID   string  `rdb:"order_id"`
	ProductID string  `rdb:"product_id"`
	Quantity  int64   `rdb:"quantity"`
	Price     float64 `rdb:"price"`
}

type Feedback struct {
	ID                 string    `rdb:"id"`
	EMarketRating      *float64  `rdb:"e_market_rating"`
	RecipeRating       *float64  `rdb:"recipe_rating"`
	ChatbotRating      *float64  `rdb:"chatbot_rating"`
	ContributionRating *float64  `rdb:"contribution_rating"`
	OverallRating      *float64  `rdb:"overall_rating"`
	SentimentLabel     string    `rdb:"sentiment_label"`
	CreatedAt          time.Time `rdb:"created_at"`
}
