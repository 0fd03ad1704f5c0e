package sandbox

// DemoSchema creates and fills the tables shown on demo test connections.
var DemoSchema = []string{
	`CREATE TABLE customers (
		id INT NOT NULL AUTO_INCREMENT,
		email VARCHAR(255) NOT NULL,
		full_name VARCHAR(255),
		password VARCHAR(255),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_customers_email (email)
	)`,
	`CREATE TABLE orders (
		id INT NOT NULL AUTO_INCREMENT,
		customer_id INT NOT NULL,
		total DECIMAL(10,2) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'new',
		PRIMARY KEY (id),
		CONSTRAINT fk_orders_customer FOREIGN KEY (customer_id) REFERENCES customers (id)
	)`,
	`INSERT INTO customers (email, full_name) VALUES
		('ada@example.com', 'Ada Lovelace'),
		('alan@example.com', 'Alan Turing')`,
	`INSERT INTO orders (customer_id, total, status) VALUES (1, 42.50, 'paid'), (2, 10.00, 'new')`,
}
